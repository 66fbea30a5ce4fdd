package board

import (
	"errors"
	"fmt"
	"slices"

	"github.com/imkarma/taskboard/internal/store"
)

// ErrInvalidDrop is returned when a drop refers to positions that do
// not exist in the lanes it carries, or carries lanes that are not
// lanes of the board.
var ErrInvalidDrop = errors.New("invalid drop")

// Drop describes a finished drag gesture. Source and Dest are the lane
// contents as the user saw them before the drop; for a move inside one
// lane only Source is read. DestIndex is clamped into range.
type Drop struct {
	SourceLane  Lane         `json:"sourceLane"`
	DestLane    Lane         `json:"destLane"`
	SourceIndex int          `json:"sourceIndex"`
	DestIndex   int          `json:"destIndex"`
	Source      []store.Task `json:"source"`
	Dest        []store.Task `json:"dest,omitempty"`
}

// SameLane reports whether the task stays in its lane.
func (d Drop) SameLane() bool {
	return d.SourceLane == d.DestLane
}

// StatusWrite changes the status of the moved task.
type StatusWrite struct {
	TaskID string
	Status store.TaskStatus
}

// LaneOrder is the new order of one lane after a drop.
type LaneOrder struct {
	Lane  Lane
	Tasks []store.Task
}

// Plan is everything a drop changes. Status, when set, must be
// persisted before any rank of Lanes.
type Plan struct {
	Status *StatusWrite
	Lanes  []LaneOrder
}

// PlanDrop splices copies of the drop's lanes and returns the writes it
// implies. The input slices are never modified.
func PlanDrop(d Drop) (Plan, error) {
	if _, err := ParseLane(string(d.SourceLane)); err != nil {
		return Plan{}, err
	}
	if _, err := ParseLane(string(d.DestLane)); err != nil {
		return Plan{}, err
	}
	if d.SourceIndex < 0 || d.SourceIndex >= len(d.Source) {
		return Plan{}, fmt.Errorf("%w: source index %d outside lane of %d", ErrInvalidDrop, d.SourceIndex, len(d.Source))
	}
	if err := checkLanes(d); err != nil {
		return Plan{}, err
	}

	if d.SameLane() {
		order := moveItem(d.Source, d.SourceIndex, d.DestIndex)
		return Plan{Lanes: []LaneOrder{{Lane: d.SourceLane, Tasks: order}}}, nil
	}

	moved := d.Source[d.SourceIndex]
	moved.Status = d.DestLane.Status()

	src := slices.Delete(slices.Clone(d.Source), d.SourceIndex, d.SourceIndex+1)
	dst := slices.Insert(slices.Clone(d.Dest), clamp(d.DestIndex, 0, len(d.Dest)), moved)

	return Plan{
		Status: &StatusWrite{TaskID: moved.ID, Status: moved.Status},
		Lanes: []LaneOrder{
			{Lane: d.SourceLane, Tasks: src},
			{Lane: d.DestLane, Tasks: dst},
		},
	}, nil
}

// checkLanes rejects a drop whose carried lanes hold a task of another
// lane or hold the same task twice.
func checkLanes(d Drop) error {
	seen := make(map[string]bool, len(d.Source)+len(d.Dest))
	check := func(l Lane, tasks []store.Task) error {
		for _, t := range tasks {
			if t.Status != l.Status() {
				return fmt.Errorf("%w: task %s is %s, not in lane %s", ErrInvalidDrop, t.ID, t.Status, l)
			}
			if seen[t.ID] {
				return fmt.Errorf("%w: task %s appears twice", ErrInvalidDrop, t.ID)
			}
			seen[t.ID] = true
		}
		return nil
	}
	if err := check(d.SourceLane, d.Source); err != nil {
		return err
	}
	if d.SameLane() {
		return nil
	}
	return check(d.DestLane, d.Dest)
}

// moveItem returns a copy of tasks with the element at from moved to to.
func moveItem(tasks []store.Task, from, to int) []store.Task {
	out := slices.Clone(tasks)
	to = clamp(to, 0, len(out)-1)
	if from == to {
		return out
	}
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// MoveTo builds the drop that moves taskID into lane dest at index to,
// using the lanes of b. A negative index means the end of the lane.
func MoveTo(b Board, taskID string, dest Lane, to int) (Drop, error) {
	if _, err := ParseLane(string(dest)); err != nil {
		return Drop{}, err
	}
	src, idx, ok := b.Find(taskID)
	if !ok {
		return Drop{}, fmt.Errorf("%w: task %s is not on the board", ErrInvalidDrop, taskID)
	}
	d := Drop{SourceLane: src, DestLane: dest, SourceIndex: idx, Source: b.Lane(src)}
	if d.SameLane() {
		if to < 0 {
			to = len(d.Source) - 1
		}
	} else {
		d.Dest = b.Lane(dest)
		if to < 0 {
			to = len(d.Dest)
		}
	}
	d.DestIndex = to
	return d, nil
}
