// Package task defines the unit of schedulable work and its closed
// status/category sets.
package task

import (
	"fmt"
	"strings"
	"time"
)

// Status is a task's lifecycle state.
//
// Transitions are one-way: pending -> completed or pending -> failed.
// There is no persisted "running" state; dispatched-but-unfinished is an
// in-memory condition only.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus validates s against the closed status set.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusFailed:
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Category is a coarse task label. It is carried through storage and display
// but never consulted by scheduling logic.
type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
)

// ParseCategory validates s against the closed category set.
// Empty input defaults to general.
func ParseCategory(s string) (Category, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return CategoryGeneral, nil
	}
	switch Category(v) {
	case CategoryGeneral, CategoryWork, CategoryPersonal:
		return Category(v), nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

const (
	PriorityMin = 1
	PriorityMax = 10
)

// DueLayout is the due-time format accepted from user input.
const DueLayout = "2006-01-02 15:04"

// Task is the unit of work. ID is store-assigned and immutable.
// Lower Priority means higher scheduling precedence.
type Task struct {
	ID       int64
	Name     string
	Priority int
	DueAt    time.Time
	Status   Status
	Category Category
}

// Key returns the ordering key (priority, due_at, id). The trailing id makes
// the order strict even when priority and due time collide.
func (t Task) Key() Key {
	return Key{Priority: t.Priority, DueAt: t.DueAt, ID: t.ID}
}

// Key is a task's total-order position within one scheduling run.
type Key struct {
	Priority int
	DueAt    time.Time
	ID       int64
}

// Less orders keys ascending by (priority, due_at, id).
func (k Key) Less(o Key) bool {
	if k.Priority != o.Priority {
		return k.Priority < o.Priority
	}
	if !k.DueAt.Equal(o.DueAt) {
		return k.DueAt.Before(o.DueAt)
	}
	return k.ID < o.ID
}

// ValidationError reports a malformed task field. The store rejects writes
// carrying one; it never originates inside the scheduling core.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task %s: %s", e.Field, e.Msg)
}

// Validate checks the fields a caller controls on create/update.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return &ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if t.Priority < PriorityMin || t.Priority > PriorityMax {
		return &ValidationError{
			Field: "priority",
			Msg:   fmt.Sprintf("%d out of range [%d,%d]", t.Priority, PriorityMin, PriorityMax),
		}
	}
	if t.DueAt.IsZero() {
		return &ValidationError{Field: "due_at", Msg: "must be set"}
	}
	if t.Status != "" {
		if _, err := ParseStatus(string(t.Status)); err != nil {
			return &ValidationError{Field: "status", Msg: err.Error()}
		}
	}
	if t.Category != "" {
		if _, err := ParseCategory(string(t.Category)); err != nil {
			return &ValidationError{Field: "category", Msg: err.Error()}
		}
	}
	return nil
}
