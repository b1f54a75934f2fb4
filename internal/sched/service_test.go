package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MachariaP/task-scheduler/internal/task"
	logx "github.com/MachariaP/task-scheduler/pkg/logx"
)

// --- fakes ---

type fakeStore struct {
	mu      sync.Mutex
	tasks   map[int64]task.Task
	writes  int
	listErr error
}

func newFakeStore(tasks ...task.Task) *fakeStore {
	fs := &fakeStore{tasks: make(map[int64]task.Task)}
	for _, t := range tasks {
		if t.Status == "" {
			t.Status = task.StatusPending
		}
		fs.tasks[t.ID] = t
	}
	return fs
}

func (f *fakeStore) ListPending(context.Context) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	// Deliberately unsorted: ordering is the engine's job.
	var out []task.Task
	for _, t := range f.tasks {
		if t.Status == task.StatusPending {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return task.Task{}, errors.New("task not found")
	}
	return t, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, st task.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return errors.New("task not found")
	}
	t.Status = st
	f.tasks[id] = t
	f.writes++
	return nil
}

func (f *fakeStore) reschedule(id int64, due time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	t.DueAt = due
	f.tasks[id] = t
}

func (f *fakeStore) status(id int64) task.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id].Status
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	fail     error
}

func (n *fakeNotifier) Send(_ context.Context, subject, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
	return n.fail
}

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.subjects))
	copy(out, n.subjects)
	return out
}

func newService(t *testing.T, cfg Config, store Store, n Notifier) *Service {
	t.Helper()
	svc, err := New(cfg, store, n, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return svc
}

func instantWorkload(context.Context, task.Task) error { return nil }

// --- ordering ---

func TestBuildOrderSortsByKey(t *testing.T) {
	t.Parallel()
	t1 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	fs := newFakeStore(
		task.Task{ID: 1, Name: "a", Priority: 5, DueAt: t2},
		task.Task{ID: 2, Name: "b", Priority: 3, DueAt: t1},
		task.Task{ID: 3, Name: "c", Priority: 3, DueAt: t1},
	)
	svc := newService(t, Config{Workload: instantWorkload}, fs, nil)

	order, err := svc.BuildOrder(context.Background())
	if err != nil {
		t.Fatalf("BuildOrder error: %v", err)
	}
	want := []int64{2, 3, 1} // id tie-break for 2 vs 3
	if len(order) != len(want) {
		t.Fatalf("len = %d, want %d", len(order), len(want))
	}
	for i, id := range want {
		if order[i].ID != id {
			t.Fatalf("order[%d] = %d, want %d", i, order[i].ID, id)
		}
	}
}

func TestBuildOrderEmptyIsNotAnError(t *testing.T) {
	t.Parallel()
	svc := newService(t, Config{Workload: instantWorkload}, newFakeStore(), nil)

	order, err := svc.BuildOrder(context.Background())
	if err != nil {
		t.Fatalf("BuildOrder error: %v", err)
	}
	if len(order) != 0 {
		t.Fatalf("len = %d, want 0", len(order))
	}
}

func TestBuildOrderStoreFailureIsFatal(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	fs.listErr = errors.New("store unreachable")
	svc := newService(t, Config{Workload: instantWorkload}, fs, nil)

	if _, err := svc.Run(context.Background()); !errors.Is(err, fs.listErr) {
		t.Fatalf("Run err = %v, want %v", err, fs.listErr)
	}
}

func TestBuildOrderIsASnapshot(t *testing.T) {
	t.Parallel()
	t1 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	fs := newFakeStore(
		task.Task{ID: 1, Name: "a", Priority: 5, DueAt: t1},
		task.Task{ID: 2, Name: "b", Priority: 5, DueAt: t1.Add(time.Hour)},
	)
	svc := newService(t, Config{Workload: instantWorkload}, fs, nil)

	order, err := svc.BuildOrder(context.Background())
	if err != nil {
		t.Fatalf("BuildOrder error: %v", err)
	}

	// Rescheduling after the snapshot must not change the captured order.
	fs.reschedule(1, t1.Add(48*time.Hour))
	if order[0].ID != 1 || !order[0].DueAt.Equal(t1) {
		t.Fatalf("snapshot mutated: %+v", order[0])
	}

	// A fresh snapshot reflects the new due time.
	order2, err := svc.BuildOrder(context.Background())
	if err != nil {
		t.Fatalf("BuildOrder error: %v", err)
	}
	if order2[0].ID != 2 {
		t.Fatalf("fresh order[0] = %d, want 2", order2[0].ID)
	}
}

// --- coordinator ---

func TestRunEmptyOrderHasNoSideEffects(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	n := &fakeNotifier{}
	svc := newService(t, Config{Workload: instantWorkload}, fs, n)

	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if rep.Processed != 0 || rep.Remaining != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if fs.writeCount() != 0 {
		t.Fatalf("store writes = %d, want 0", fs.writeCount())
	}
	if len(n.sent()) != 0 {
		t.Fatalf("notifications = %d, want 0", len(n.sent()))
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	t.Parallel()
	const workers = 2
	const nTasks = 8

	var tasks []task.Task
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= nTasks; i++ {
		tasks = append(tasks, task.Task{ID: int64(i), Name: fmt.Sprintf("t%d", i), Priority: 5, DueAt: due})
	}
	fs := newFakeStore(tasks...)

	var cur, peak int32
	workload := func(ctx context.Context, _ task.Task) error {
		c := atomic.AddInt32(&cur, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if c <= p || atomic.CompareAndSwapInt32(&peak, p, c) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&cur, -1)
		return nil
	}

	svc := newService(t, Config{Workers: workers, Workload: workload}, fs, nil)
	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if rep.Processed != nTasks {
		t.Fatalf("Processed = %d, want %d", rep.Processed, nTasks)
	}
	if p := atomic.LoadInt32(&peak); p > workers {
		t.Fatalf("peak concurrency = %d, want <= %d", p, workers)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	t.Parallel()
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	fs := newFakeStore(
		task.Task{ID: 1, Name: "good", Priority: 1, DueAt: due},
		task.Task{ID: 2, Name: "bad", Priority: 2, DueAt: due},
		task.Task{ID: 3, Name: "also-good", Priority: 3, DueAt: due},
	)
	n := &fakeNotifier{}

	boom := errors.New("workload exploded")
	workload := func(_ context.Context, tk task.Task) error {
		if tk.ID == 2 {
			return boom
		}
		return nil
	}

	svc := newService(t, Config{Workers: 2, Workload: workload}, fs, n)
	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if rep.Processed != 3 {
		t.Fatalf("Processed = %d, want 3", rep.Processed)
	}

	if st := fs.status(1); st != task.StatusCompleted {
		t.Fatalf("task 1 status = %s, want completed", st)
	}
	if st := fs.status(2); st != task.StatusFailed {
		t.Fatalf("task 2 status = %s, want failed", st)
	}
	if st := fs.status(3); st != task.StatusCompleted {
		t.Fatalf("task 3 status = %s, want completed", st)
	}
	// Exactly one status write per task.
	if fs.writeCount() != 3 {
		t.Fatalf("store writes = %d, want 3", fs.writeCount())
	}
	if got := len(n.sent()); got != 3 {
		t.Fatalf("notifications = %d, want 3", got)
	}
}

func TestRunDispatchOrderSerial(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	// A(prio 1, due now+1m), B(prio 1, due now+2m), C(prio 2, due now):
	// priority dominates due time, so dispatch order is A, B, C.
	fs := newFakeStore(
		task.Task{ID: 10, Name: "A", Priority: 1, DueAt: now.Add(time.Minute)},
		task.Task{ID: 11, Name: "B", Priority: 1, DueAt: now.Add(2 * time.Minute)},
		task.Task{ID: 12, Name: "C", Priority: 2, DueAt: now},
	)

	var mu sync.Mutex
	var got []string
	workload := func(_ context.Context, tk task.Task) error {
		mu.Lock()
		got = append(got, tk.Name)
		mu.Unlock()
		return nil
	}

	svc := newService(t, Config{Workers: 1, Workload: workload}, fs, nil)
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []string{"A", "B", "C"}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("executed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	// No task left pending.
	for _, id := range []int64{10, 11, 12} {
		if st := fs.status(id); !st.Terminal() {
			t.Fatalf("task %d status = %s, want terminal", id, st)
		}
	}
}

func TestRunCancelStopsDispatchOnly(t *testing.T) {
	t.Parallel()
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	fs := newFakeStore(
		task.Task{ID: 1, Name: "first", Priority: 1, DueAt: due},
		task.Task{ID: 2, Name: "second", Priority: 2, DueAt: due},
		task.Task{ID: 3, Name: "third", Priority: 3, DueAt: due},
	)

	started := make(chan struct{})
	release := make(chan struct{})
	workload := func(ctx context.Context, _ task.Task) error {
		close(started)
		<-release
		// In-flight work finishes naturally even though the run was cancelled.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}

	svc := newService(t, Config{Workers: 1, Workload: workload}, fs, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Report, 1)
	go func() {
		rep := svc.RunOrder(ctx, mustOrder(t, svc))
		done <- rep
	}()

	<-started
	cancel()
	close(release)

	rep := <-done
	if rep.Processed != 1 || rep.Remaining != 2 {
		t.Fatalf("report = %+v, want Processed=1 Remaining=2", rep)
	}
	if st := fs.status(1); st != task.StatusCompleted {
		t.Fatalf("task 1 status = %s, want completed", st)
	}
	for _, id := range []int64{2, 3} {
		if st := fs.status(id); st != task.StatusPending {
			t.Fatalf("task %d status = %s, want pending", id, st)
		}
	}
}

func mustOrder(t *testing.T, svc *Service) []task.Task {
	t.Helper()
	order, err := svc.BuildOrder(context.Background())
	if err != nil {
		t.Fatalf("BuildOrder error: %v", err)
	}
	return order
}

// --- runner ---

func TestNotifierFailureDoesNotAffectStatus(t *testing.T) {
	t.Parallel()
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	fs := newFakeStore(task.Task{ID: 1, Name: "job", Priority: 5, DueAt: due})
	n := &fakeNotifier{fail: errors.New("telegram is down")}

	svc := newService(t, Config{Workers: 1, Workload: instantWorkload}, fs, n)
	rep, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if rep.Processed != 1 {
		t.Fatalf("Processed = %d, want 1", rep.Processed)
	}
	if st := fs.status(1); st != task.StatusCompleted {
		t.Fatalf("status = %s, want completed", st)
	}
	// The notification was attempted after the status write.
	if got := n.sent(); len(got) != 1 || got[0] != "Task job completed" {
		t.Fatalf("sent = %v", got)
	}
}

func TestPanickingWorkloadMarksTaskFailed(t *testing.T) {
	t.Parallel()
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	fs := newFakeStore(
		task.Task{ID: 1, Name: "panicky", Priority: 1, DueAt: due},
		task.Task{ID: 2, Name: "calm", Priority: 2, DueAt: due},
	)

	workload := func(_ context.Context, tk task.Task) error {
		if tk.ID == 1 {
			panic("index out of range")
		}
		return nil
	}

	svc := newService(t, Config{Workers: 1, Workload: workload}, fs, nil)
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if st := fs.status(1); st != task.StatusFailed {
		t.Fatalf("task 1 status = %s, want failed", st)
	}
	if st := fs.status(2); st != task.StatusCompleted {
		t.Fatalf("task 2 status = %s, want completed", st)
	}
}

func TestFailedNotificationMentionsError(t *testing.T) {
	t.Parallel()
	due := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	fs := newFakeStore(task.Task{ID: 1, Name: "job", Priority: 5, DueAt: due})
	n := &fakeNotifier{}

	workload := func(context.Context, task.Task) error { return errors.New("disk full") }
	svc := newService(t, Config{Workers: 1, Workload: workload}, fs, n)
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := n.sent(); len(got) != 1 || got[0] != "Task job failed" {
		t.Fatalf("sent = %v", got)
	}
}

func TestNewRequiresStore(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, nil, nil, logx.Nop(), nil); !errors.Is(err, ErrStoreNil) {
		t.Fatalf("err = %v, want ErrStoreNil", err)
	}
}
