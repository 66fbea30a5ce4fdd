package board

import (
	"context"
	"fmt"

	"github.com/imkarma/taskboard/internal/store"
)

// RankWrite sets the rank of one task.
type RankWrite struct {
	TaskID string
	Rank   int64
}

// AssignRanks gives every task in the ordered lane the rank base+index
// and returns the writes for tasks whose rank changed, in index order.
// Ranks are unique and increasing within the lane but not contiguous
// across operations.
func AssignRanks(tasks []store.Task, base int64) []RankWrite {
	var writes []RankWrite
	for i := range tasks {
		r := base + int64(i)
		if tasks[i].Rank == r {
			continue
		}
		writes = append(writes, RankWrite{TaskID: tasks[i].ID, Rank: r})
	}
	return writes
}

// RankSetter persists a single rank.
type RankSetter interface {
	SetTaskRank(ctx context.Context, id string, rank int64) error
}

// ApplyRanks performs writes one at a time, waiting for each before
// issuing the next. It stops at the first store failure and returns how
// many writes succeeded. Earlier writes are not undone. Cancellation is
// left to the store: ApplyRanks itself never gives up between writes.
func ApplyRanks(ctx context.Context, s RankSetter, writes []RankWrite) (int, error) {
	for i, w := range writes {
		if err := s.SetTaskRank(ctx, w.TaskID, w.Rank); err != nil {
			return i, fmt.Errorf("set rank of %s: %w", w.TaskID, err)
		}
	}
	return len(writes), nil
}
