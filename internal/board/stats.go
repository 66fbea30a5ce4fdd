package board

import (
	"time"

	"github.com/imkarma/taskboard/internal/store"
)

// Stats counts a project's tasks for dashboards.
// Late is informational: it never changes a task's status.
type Stats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
	Late       int `json:"late"`
	Progress   int `json:"progress"`
}

// NewStats counts tasks as of now. A task is late when its status is
// in-late, or when its end date has passed and it is not done.
func NewStats(tasks []store.Task, now time.Time) Stats {
	var s Stats
	for _, t := range tasks {
		s.Total++
		switch t.Status {
		case store.StatusTodo:
			s.Todo++
		case store.StatusInProgress:
			s.InProgress++
		case store.StatusDone:
			s.Done++
		}
		if t.Status == store.StatusLate || (t.Status != store.StatusDone && t.EndDate != nil && t.EndDate.Before(now)) {
			s.Late++
		}
	}
	s.Progress = Progress(s.Todo, s.InProgress, s.Done)
	return s
}
