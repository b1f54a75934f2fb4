package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/MachariaP/task-scheduler/internal/app"
	"github.com/MachariaP/task-scheduler/internal/config"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./scheduler.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if errors.Is(err, fs.ErrNotExist) {
		// No config file is fine for local use: sqlite in the working
		// directory, three workers, notifications off.
		cfg = config.Default()
		mgr.Commit(cfg)
		err = nil
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer a.Close()
	mgr.SetLogger(a.Log)
	mgr.SetValidator(func(_ context.Context, c *config.Config) error { return app.Validate(c) })

	args := flag.Args()
	if len(args) == 0 {
		if err := runMenu(ctx, a, mgr); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		return
	}

	if err := dispatch(ctx, a, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, a *app.App, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return cmdAdd(ctx, a, rest)
	case "list":
		return cmdList(ctx, a, rest)
	case "show":
		return cmdShow(ctx, a, rest)
	case "reschedule":
		return cmdReschedule(ctx, a, rest)
	case "delete":
		return cmdDelete(ctx, a, rest)
	case "run":
		return cmdRun(ctx, a)
	default:
		return fmt.Errorf("unknown command %q (expected add|list|show|reschedule|delete|run)", cmd)
	}
}
