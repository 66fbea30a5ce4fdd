// Package board projects a project's tasks into kanban lanes and turns
// drag-and-drop gestures into ordered store writes.
package board

import (
	"errors"
	"fmt"

	"github.com/imkarma/taskboard/internal/store"
)

// Lane is one of the three board columns. Its value equals the task
// status it holds.
type Lane string

const (
	LaneTodo       Lane = "todo"
	LaneInProgress Lane = "inprogress"
	LaneDone       Lane = "done"
)

// Lanes lists the board columns left to right.
var Lanes = []Lane{LaneTodo, LaneInProgress, LaneDone}

// ErrUnknownLane is returned for a lane name outside Lanes.
var ErrUnknownLane = errors.New("unknown lane")

// ParseLane converts a name into a Lane.
func ParseLane(s string) (Lane, error) {
	switch Lane(s) {
	case LaneTodo, LaneInProgress, LaneDone:
		return Lane(s), nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownLane)
}

// Status is the task status implied by membership in the lane.
func (l Lane) Status() store.TaskStatus {
	return store.TaskStatus(l)
}

// Title is the column heading.
func (l Lane) Title() string {
	switch l {
	case LaneTodo:
		return "To Do"
	case LaneInProgress:
		return "In Progress"
	case LaneDone:
		return "Done"
	}
	return string(l)
}

// LaneOf returns the lane holding tasks with the given status.
// Statuses that are not columns, such as in-late, report false.
func LaneOf(s store.TaskStatus) (Lane, bool) {
	switch s {
	case store.StatusTodo:
		return LaneTodo, true
	case store.StatusInProgress:
		return LaneInProgress, true
	case store.StatusDone:
		return LaneDone, true
	}
	return "", false
}
