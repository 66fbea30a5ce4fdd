package board

import (
	"cmp"
	"math"
	"slices"

	"github.com/imkarma/taskboard/internal/store"
)

// Board is the lane view of one project's tasks.
type Board struct {
	ProjectID  string       `json:"projectId"`
	Locked     bool         `json:"locked"`
	Todo       []store.Task `json:"todo"`
	InProgress []store.Task `json:"inprogress"`
	Done       []store.Task `json:"done"`
	Progress   int          `json:"progress"`
}

// NewBoard splits tasks into lanes ordered by ascending rank. Equal
// ranks keep their input order. Tasks whose status is not a lane are
// left out.
func NewBoard(projectID string, tasks []store.Task) Board {
	b := Board{ProjectID: projectID}
	for _, t := range tasks {
		l, ok := LaneOf(t.Status)
		if !ok {
			continue
		}
		*b.lanePtr(l) = append(*b.lanePtr(l), t)
	}
	for _, l := range Lanes {
		slices.SortStableFunc(*b.lanePtr(l), func(a, c store.Task) int {
			return cmp.Compare(a.Rank, c.Rank)
		})
	}
	b.Progress = Progress(len(b.Todo), len(b.InProgress), len(b.Done))
	return b
}

// Progress is the percentage of done tasks, rounded to the nearest
// integer. An empty board is at 0.
func Progress(todo, inProgress, done int) int {
	total := todo + inProgress + done
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// Lane returns the tasks of one lane. The slice is shared with the board.
func (b Board) Lane(l Lane) []store.Task {
	switch l {
	case LaneTodo:
		return b.Todo
	case LaneInProgress:
		return b.InProgress
	case LaneDone:
		return b.Done
	}
	return nil
}

// Total is the number of tasks on the board.
func (b Board) Total() int {
	return len(b.Todo) + len(b.InProgress) + len(b.Done)
}

// Find locates a task by ID.
func (b Board) Find(taskID string) (Lane, int, bool) {
	for _, l := range Lanes {
		for i, t := range b.Lane(l) {
			if t.ID == taskID {
				return l, i, true
			}
		}
	}
	return "", -1, false
}

// Clone returns a deep copy whose lanes can be modified freely.
func (b Board) Clone() Board {
	b.Todo = slices.Clone(b.Todo)
	b.InProgress = slices.Clone(b.InProgress)
	b.Done = slices.Clone(b.Done)
	return b
}

// withLane replaces one lane and recomputes progress.
func (b *Board) withLane(l Lane, tasks []store.Task) {
	if p := b.lanePtr(l); p != nil {
		*p = tasks
	}
	b.Progress = Progress(len(b.Todo), len(b.InProgress), len(b.Done))
}

func (b *Board) lanePtr(l Lane) *[]store.Task {
	switch l {
	case LaneTodo:
		return &b.Todo
	case LaneInProgress:
		return &b.InProgress
	case LaneDone:
		return &b.Done
	}
	return nil
}
