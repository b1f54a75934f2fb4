package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MachariaP/task-scheduler/internal/task"
)

// Memory is a process-local Store used by tests and ephemeral runs.
// It applies the same validation rules as the SQLite driver.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]task.Task
}

func NewMemory() *Memory {
	return &Memory{tasks: make(map[int64]task.Task)}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Create(_ context.Context, t task.Task) (int64, error) {
	if t.Status == "" {
		t.Status = task.StatusPending
	}
	if t.Category == "" {
		t.Category = task.CategoryGeneral
	}
	t.Name = strings.TrimSpace(t.Name)
	if err := t.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	m.tasks[t.ID] = t
	return t.ID, nil
}

func (m *Memory) GetByID(_ context.Context, id int64) (task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return task.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) List(_ context.Context, f ListFilter) ([]task.Task, error) {
	if f.Status != "" {
		if _, err := task.ParseStatus(string(f.Status)); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
		}
	}

	m.mu.RLock()
	out := make([]task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out, nil
}

func (m *Memory) ListPending(ctx context.Context) ([]task.Task, error) {
	return m.List(ctx, ListFilter{Status: task.StatusPending})
}

func (m *Memory) UpdateStatus(_ context.Context, id int64, st task.Status) error {
	if _, err := task.ParseStatus(string(st)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, st)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	t.Status = st
	m.tasks[id] = t
	return nil
}

func (m *Memory) Reschedule(_ context.Context, id int64, due time.Time) error {
	if due.IsZero() {
		return &task.ValidationError{Field: "due_at", Msg: "must be set"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	t.DueAt = due
	m.tasks[id] = t
	return nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	delete(m.tasks, id)
	return nil
}
