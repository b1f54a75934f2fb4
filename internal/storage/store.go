package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MachariaP/task-scheduler/internal/task"
	logx "github.com/MachariaP/task-scheduler/pkg/logx"
)

var (
	// ErrNotFound means the referenced task id is absent from the store.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidStatus means a status outside the closed set was supplied.
	ErrInvalidStatus = errors.New("invalid task status")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default when empty)
//   - "memory": process-local store, lost on exit
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ListFilter narrows List results. Zero value lists everything.
type ListFilter struct {
	Status task.Status
}

// Store is the persistence API consumed by the scheduling core and the CLI.
//
// All result slices are ordered by (priority asc, due_at asc, id asc) so a
// snapshot is already in execution order.
type Store interface {
	// Create validates and inserts a new task, returning its assigned id.
	// Status starts at pending; an empty category defaults to general.
	Create(ctx context.Context, t task.Task) (int64, error)

	// GetByID returns the task or ErrNotFound.
	GetByID(ctx context.Context, id int64) (task.Task, error)

	// List returns tasks matching the filter.
	List(ctx context.Context, f ListFilter) ([]task.Task, error)

	// ListPending returns all tasks still awaiting execution.
	ListPending(ctx context.Context) ([]task.Task, error)

	// UpdateStatus sets the task's status. It fails with ErrNotFound for an
	// unknown id and ErrInvalidStatus for a status outside the closed set.
	UpdateStatus(ctx context.Context, id int64, st task.Status) error

	// Reschedule moves the task's due time. ErrNotFound for an unknown id.
	Reschedule(ctx context.Context, id int64, due time.Time) error

	// Delete removes the task. ErrNotFound for an unknown id.
	Delete(ctx context.Context, id int64) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
