package sched

import (
	"context"
	"time"

	"github.com/MachariaP/task-scheduler/internal/task"
)

// DefaultWorkers bounds concurrent task execution when Config.Workers is
// unset.
const DefaultWorkers = 3

// Store is the slice of the persistence API the engine consumes.
type Store interface {
	ListPending(ctx context.Context) ([]task.Task, error)
	GetByID(ctx context.Context, id int64) (task.Task, error)
	UpdateStatus(ctx context.Context, id int64, st task.Status) error
}

// Notifier delivers a fire-and-forget message after a task finishes.
// Errors are logged by the engine and never affect task state.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Workload performs one task's work. It may block for the duration of the
// work and must honor ctx for its own I/O; a non-nil error marks the task
// failed.
type Workload func(ctx context.Context, t task.Task) error

// Config controls the execution engine.
type Config struct {
	// Workers bounds in-flight task executions. Minimum 1; zero selects
	// DefaultWorkers.
	Workers int

	// Workload runs each task. Nil selects SimulateWorkload(1s, 5s).
	Workload Workload
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Workload == nil {
		c.Workload = SimulateWorkload(1*time.Second, 5*time.Second)
	}
	return c
}

// Report summarizes one run. Per-task outcomes are visible only through the
// store's persisted statuses.
type Report struct {
	// Processed counts tasks dispatched and driven to a terminal status.
	Processed int
	// Remaining counts snapshot tasks never dispatched (run cancelled early);
	// they stay pending for the next run.
	Remaining int
	// Took is wall-clock duration of the run.
	Took time.Duration
}

// RunEvent is published on the event bus for task lifecycle events.
type RunEvent struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}
