package sched

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/MachariaP/task-scheduler/internal/eventbus"
	"github.com/MachariaP/task-scheduler/internal/task"
	logx "github.com/MachariaP/task-scheduler/pkg/logx"
)

// execOne runs a single task to a terminal status.
//
// Exactly one status write happens per invocation, and it strictly precedes
// the notification so a concurrent status read always reflects a terminal
// state once a notification has been observed. A failed workload marks the
// task failed and never propagates; there are no retries.
func (s *Service) execOne(ctx context.Context, cfg Config, t task.Task) {
	start := time.Now()
	s.log.Debug("task.started", logx.Int64("id", t.ID), logx.String("task", t.Name))
	s.publish(eventbus.TypeTaskStarted, RunEvent{ID: t.ID, Name: t.Name, Started: start})

	err := s.runWorkload(ctx, cfg, t)
	dur := time.Since(start)

	if err != nil {
		s.finish(ctx, t, task.StatusFailed,
			fmt.Sprintf("Task %s failed", t.Name),
			fmt.Sprintf("Error: %v", err))
		s.log.Warn("task.failed", logx.Int64("id", t.ID), logx.String("task", t.Name), logx.Duration("dur", dur), logx.Err(err))
		s.publish(eventbus.TypeTaskFailed, RunEvent{ID: t.ID, Name: t.Name, Started: start, Duration: dur, Error: err.Error()})
		return
	}

	s.finish(ctx, t, task.StatusCompleted,
		fmt.Sprintf("Task %s completed", t.Name),
		"Success!")
	s.log.Info("task.completed", logx.Int64("id", t.ID), logx.String("task", t.Name), logx.Duration("dur", dur))
	s.publish(eventbus.TypeTaskCompleted, RunEvent{ID: t.ID, Name: t.Name, Started: start, Duration: dur})
}

// runWorkload guards the workload so a panicking task cannot take down a
// worker or the run.
func (s *Service) runWorkload(ctx context.Context, cfg Config, t task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("task.panic", logx.String("task", t.Name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	return cfg.Workload(ctx, t)
}

// finish writes the terminal status, then notifies.
//
// If the status write itself fails (task deleted mid-run, store hiccup), the
// notification is skipped: the status-before-notify ordering is the one
// causal guarantee the engine makes.
func (s *Service) finish(ctx context.Context, t task.Task, st task.Status, subject, body string) {
	if err := s.store.UpdateStatus(ctx, t.ID, st); err != nil {
		s.log.Error("status write failed", logx.Int64("id", t.ID), logx.String("status", string(st)), logx.Err(err))
		return
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, subject, body); err != nil {
		// Best-effort: already persisted, never re-thrown into the run.
		s.log.Warn("notify failed", logx.Int64("id", t.ID), logx.Err(err))
	}
}
