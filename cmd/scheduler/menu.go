package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MachariaP/task-scheduler/internal/app"
	"github.com/MachariaP/task-scheduler/internal/config"
	"github.com/MachariaP/task-scheduler/internal/task"
)

// runMenu is the interactive surface. While it runs, the config file is
// watched so worker-count and logging changes apply without a restart.
func runMenu(ctx context.Context, a *app.App, mgr *config.Manager) error {
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	updates := mgr.Subscribe(4)
	defer mgr.Unsubscribe(updates)
	go func() { _ = mgr.Watch(watchCtx) }()
	go func() {
		for cfg := range updates {
			if err := a.Apply(cfg); err != nil {
				fmt.Println("config reload rejected:", err)
			}
		}
	}()

	in := bufio.NewScanner(os.Stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		printMenu()
		choice, ok := prompt(in, "> ")
		if !ok {
			return nil
		}
		var err error
		switch strings.TrimSpace(choice) {
		case "1":
			err = menuAdd(ctx, a, in)
		case "2":
			err = cmdList(ctx, a, nil)
		case "3":
			err = menuReschedule(ctx, a, in)
		case "4":
			err = menuDelete(ctx, a, in)
		case "5":
			err = menuShow(ctx, a, in)
		case "6":
			err = cmdRun(ctx, a)
		case "7", "q", "quit", "exit":
			return nil
		default:
			fmt.Println("Pick 1-7.")
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}

func printMenu() {
	fmt.Println()
	fmt.Println("Task Scheduler")
	fmt.Println("  1. Add task")
	fmt.Println("  2. List tasks")
	fmt.Println("  3. Reschedule task")
	fmt.Println("  4. Delete task")
	fmt.Println("  5. Task details")
	fmt.Println("  6. Run pending tasks")
	fmt.Println("  7. Exit")
}

func prompt(in *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func menuAdd(ctx context.Context, a *app.App, in *bufio.Scanner) error {
	name, ok := prompt(in, "Name: ")
	if !ok {
		return nil
	}
	prio, ok := prompt(in, "Priority (1-10, default 5): ")
	if !ok {
		return nil
	}
	if prio == "" {
		prio = "5"
	}
	due, ok := prompt(in, "Due ("+task.DueLayout+"): ")
	if !ok {
		return nil
	}
	cat, ok := prompt(in, "Category (general/work/personal, default general): ")
	if !ok {
		return nil
	}
	return cmdAdd(ctx, a, []string{
		"-name", name, "-priority", prio, "-due", due, "-category", orDefault(cat, "general"),
	})
}

func menuReschedule(ctx context.Context, a *app.App, in *bufio.Scanner) error {
	id, ok := prompt(in, "Task ID: ")
	if !ok {
		return nil
	}
	due, ok := prompt(in, "New due ("+task.DueLayout+"): ")
	if !ok {
		return nil
	}
	return cmdReschedule(ctx, a, []string{id, "-due", due})
}

func menuDelete(ctx context.Context, a *app.App, in *bufio.Scanner) error {
	id, ok := prompt(in, "Task ID: ")
	if !ok {
		return nil
	}
	confirm, ok := prompt(in, "Really delete "+id+"? (y/N): ")
	if !ok || !strings.EqualFold(confirm, "y") {
		fmt.Println("Cancelled.")
		return nil
	}
	return cmdDelete(ctx, a, []string{id})
}

func menuShow(ctx context.Context, a *app.App, in *bufio.Scanner) error {
	id, ok := prompt(in, "Task ID: ")
	if !ok {
		return nil
	}
	return cmdShow(ctx, a, []string{id})
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
