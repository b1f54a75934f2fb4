package sched

import (
	"context"
	"math/rand"
	"time"

	"github.com/MachariaP/task-scheduler/internal/task"
)

// SimulateWorkload returns a workload that sleeps a uniformly random duration
// in [min, max], standing in for real I/O-bound work. It honors ctx so a
// timed-out workload still ends promptly.
func SimulateWorkload(min, max time.Duration) Workload {
	if min <= 0 {
		min = time.Second
	}
	if max < min {
		max = min
	}
	return func(ctx context.Context, _ task.Task) error {
		d := min
		if span := max - min; span > 0 {
			d += time.Duration(rand.Int63n(int64(span)))
		}
		tmr := time.NewTimer(d)
		defer tmr.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tmr.C:
			return nil
		}
	}
}
