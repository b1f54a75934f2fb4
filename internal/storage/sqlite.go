package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MachariaP/task-scheduler/internal/task"
	logx "github.com/MachariaP/task-scheduler/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "./tasks.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Create(ctx context.Context, t task.Task) (int64, error) {
	if t.Status == "" {
		t.Status = task.StatusPending
	}
	if t.Category == "" {
		t.Category = task.CategoryGeneral
	}
	if err := t.Validate(); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(name, priority, due_at, status, category) VALUES(?,?,?,?,?)`,
		strings.TrimSpace(t.Name), t.Priority, t.DueAt.UnixMilli(), string(t.Status), string(t.Category),
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.log.Debug("task created", logx.Int64("id", id), logx.String("name", t.Name), logx.Int("priority", t.Priority))
	return id, nil
}

const taskColumns = `id, name, priority, due_at, status, category`

func scanTask(row interface{ Scan(...any) error }) (task.Task, error) {
	var t task.Task
	var dueMS int64
	var status, category string
	if err := row.Scan(&t.ID, &t.Name, &t.Priority, &dueMS, &status, &category); err != nil {
		return task.Task{}, err
	}
	t.DueAt = time.UnixMilli(dueMS)
	t.Status = task.Status(status)
	t.Category = task.Category(category)
	return t, nil
}

func (s *sqliteStore) GetByID(ctx context.Context, id int64) (task.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (s *sqliteStore) List(ctx context.Context, f ListFilter) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}
	if f.Status != "" {
		if _, err := task.ParseStatus(string(f.Status)); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
		}
		query += ` WHERE status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY priority ASC, due_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListPending(ctx context.Context) ([]task.Task, error) {
	return s.List(ctx, ListFilter{Status: task.StatusPending})
}

func (s *sqliteStore) UpdateStatus(ctx context.Context, id int64, st task.Status) error {
	if _, err := task.ParseStatus(string(st)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, st)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ?`, string(st), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) Reschedule(ctx context.Context, id int64, due time.Time) error {
	if due.IsZero() {
		return &task.ValidationError{Field: "due_at", Msg: "must be set"}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET due_at = ? WHERE id = ?`, due.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	s.log.Debug("task rescheduled", logx.Int64("id", id), logx.Time("due_at", due))
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}
