package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/MachariaP/task-scheduler/internal/app"
	"github.com/MachariaP/task-scheduler/internal/eventbus"
	"github.com/MachariaP/task-scheduler/internal/sched"
	"github.com/MachariaP/task-scheduler/internal/storage"
	"github.com/MachariaP/task-scheduler/internal/task"
)

func parseDue(s string) (time.Time, error) {
	due, err := time.ParseInLocation(task.DueLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("due time must look like %q: %w", task.DueLayout, err)
	}
	return due, nil
}

func cmdAdd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	name := fs.String("name", "", "task name")
	priority := fs.Int("priority", 5, "priority 1-10, lower runs first")
	due := fs.String("due", "", `due time, e.g. "2026-03-28 09:00"`)
	category := fs.String("category", "general", "general, work or personal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dueAt, err := parseDue(*due)
	if err != nil {
		return err
	}
	cat, err := task.ParseCategory(*category)
	if err != nil {
		return err
	}

	id, err := a.Store.Create(ctx, task.Task{
		Name:     *name,
		Priority: *priority,
		DueAt:    dueAt,
		Category: cat,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Task added with ID %d\n", id)
	return nil
}

func cmdList(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	status := fs.String("status", "", "filter: pending, completed or failed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var filter storage.ListFilter
	if *status != "" {
		st, err := task.ParseStatus(*status)
		if err != nil {
			return err
		}
		filter.Status = st
	}

	tasks, err := a.Store.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks available.")
		return nil
	}
	printTasks(tasks)
	return nil
}

func printTasks(tasks []task.Task) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRIORITY\tDUE\tCATEGORY\tSTATUS")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			t.ID, t.Name, t.Priority, t.DueAt.Format(task.DueLayout), t.Category, t.Status)
	}
	_ = w.Flush()
}

func parseID(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("task id required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", args[0])
	}
	return id, nil
}

func cmdShow(ctx context.Context, a *app.App, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	t, err := a.Store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("ID:       %d\n", t.ID)
	fmt.Printf("Name:     %s\n", t.Name)
	fmt.Printf("Priority: %d\n", t.Priority)
	fmt.Printf("Due:      %s\n", t.DueAt.Format(task.DueLayout))
	fmt.Printf("Category: %s\n", t.Category)
	fmt.Printf("Status:   %s\n", t.Status)
	return nil
}

func cmdReschedule(ctx context.Context, a *app.App, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("reschedule", flag.ContinueOnError)
	due := fs.String("due", "", `new due time, e.g. "2026-03-28 11:00"`)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	dueAt, err := parseDue(*due)
	if err != nil {
		return err
	}
	if err := a.Store.Reschedule(ctx, id, dueAt); err != nil {
		return err
	}
	fmt.Printf("Task %d rescheduled to %s\n", id, dueAt.Format(task.DueLayout))
	return nil
}

func cmdDelete(ctx context.Context, a *app.App, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.Store.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Task %d removed.\n", id)
	return nil
}

// cmdRun executes all pending tasks, streaming per-task progress from the
// event bus while the engine works.
func cmdRun(ctx context.Context, a *app.App) error {
	events, unsub := a.Bus.Subscribe(64)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			re, ok := ev.Data.(sched.RunEvent)
			if !ok {
				continue
			}
			switch ev.Type {
			case eventbus.TypeTaskCompleted:
				fmt.Printf("  ✓ %s (%s)\n", re.Name, re.Duration.Round(time.Millisecond))
			case eventbus.TypeTaskFailed:
				fmt.Printf("  ✗ %s: %s\n", re.Name, re.Error)
			}
		}
	}()

	rep, err := a.Sched.Run(ctx)
	unsub()
	<-done
	if err != nil {
		return err
	}
	if rep.Processed == 0 && rep.Remaining == 0 {
		fmt.Println("No pending tasks.")
		return nil
	}
	fmt.Printf("Processed %d task(s) in %s.\n", rep.Processed, rep.Took.Round(time.Millisecond))
	if rep.Remaining > 0 {
		fmt.Printf("%d task(s) left pending (run interrupted).\n", rep.Remaining)
	}
	return nil
}
