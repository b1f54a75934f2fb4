package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MachariaP/task-scheduler/internal/eventbus"
	"github.com/MachariaP/task-scheduler/internal/task"
	logx "github.com/MachariaP/task-scheduler/pkg/logx"
)

var ErrStoreNil = errors.New("sched: store is nil")

// Service coordinates one scheduling run at a time.
//
// It owns no background goroutines between runs; workers live only for the
// duration of Run.
type Service struct {
	mu  sync.Mutex
	cfg Config

	store    Store
	notifier Notifier
	log      logx.Logger
	bus      eventbus.Bus
}

func New(cfg Config, store Store, notifier Notifier, log logx.Logger, bus eventbus.Bus) (*Service, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		store:    store,
		notifier: notifier,
		log:      log,
		bus:      bus,
	}, nil
}

// Apply updates execution settings between runs.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.withDefaults()
	s.mu.Unlock()
}

func (s *Service) config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Run snapshots the pending tasks and executes them to completion. Only a
// failed snapshot is an error; per-task failures are recorded as task status
// and never abort the run.
func (s *Service) Run(ctx context.Context) (Report, error) {
	order, err := s.BuildOrder(ctx)
	if err != nil {
		return Report{}, err
	}
	return s.RunOrder(ctx, order), nil
}

// RunOrder executes a prebuilt snapshot with bounded concurrency.
//
// Dispatch is strict: among undispatched tasks, the smallest ordering key is
// handed to the next free worker slot. Completion order is not guaranteed.
// RunOrder blocks until every dispatched task has reached a terminal status.
//
// Cancelling ctx stops dispatching new tasks; in-flight workloads run under a
// context detached from the cancel signal so they finish naturally.
// Never-dispatched tasks stay pending for the next run.
func (s *Service) RunOrder(ctx context.Context, order []task.Task) Report {
	if len(order) == 0 {
		return Report{}
	}
	cfg := s.config()
	start := time.Now()

	s.log.Info("run started", logx.Int("tasks", len(order)), logx.Int("workers", cfg.Workers))

	// Workload context survives run cancellation (cooperative cancel: stop
	// dispatching, let in-flight finish).
	execCtx := context.WithoutCancel(ctx)

	permits := make(chan struct{}, cfg.Workers)
	var wg sync.WaitGroup

	dispatched := 0
dispatch:
	for _, t := range order {
		select {
		case permits <- struct{}{}:
			// A freed slot and cancellation can race; cancellation wins so no
			// task is dispatched after ctx is done.
			if ctx.Err() != nil {
				<-permits
				break dispatch
			}
		case <-ctx.Done():
			break dispatch
		}
		dispatched++
		wg.Add(1)
		go func(t task.Task) {
			defer wg.Done()
			defer func() { <-permits }()
			s.execOne(execCtx, cfg, t)
		}(t)
	}
	wg.Wait()

	rep := Report{
		Processed: dispatched,
		Remaining: len(order) - dispatched,
		Took:      time.Since(start),
	}
	if rep.Remaining > 0 {
		s.log.Warn("run cancelled before full dispatch",
			logx.Int("processed", rep.Processed), logx.Int("remaining", rep.Remaining))
	} else {
		s.log.Info("run finished", logx.Int("processed", rep.Processed), logx.Duration("took", rep.Took))
	}
	s.publish(eventbus.TypeRunFinished, RunEvent{Duration: rep.Took})
	return rep
}

func (s *Service) publish(typ string, ev RunEvent) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
	}
}
