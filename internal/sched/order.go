package sched

import (
	"context"
	"fmt"
	"sort"

	"github.com/MachariaP/task-scheduler/internal/task"
)

// BuildOrder snapshots all pending tasks and returns them in total execution
// order: priority ascending, then due time, then id. The id tie-break keeps
// the order strict even when priority and due time collide.
//
// The returned slice is a fixed snapshot; tasks created or rescheduled after
// this call do not affect the current run. An empty store yields an empty
// order and a nil error; callers treat that as "nothing to do".
func (s *Service) BuildOrder(ctx context.Context) ([]task.Task, error) {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot pending tasks: %w", err)
	}

	order := make([]task.Task, len(pending))
	copy(order, pending)

	// Stores return rows already ordered, but the contract belongs to the
	// engine, not the driver.
	sort.Slice(order, func(i, j int) bool {
		return order[i].Key().Less(order[j].Key())
	})
	return order, nil
}
