// Package app wires configuration into the scheduler's services.
package app

import (
	"fmt"
	"time"

	"github.com/MachariaP/task-scheduler/internal/config"
	"github.com/MachariaP/task-scheduler/internal/eventbus"
	"github.com/MachariaP/task-scheduler/internal/notify"
	"github.com/MachariaP/task-scheduler/internal/sched"
	"github.com/MachariaP/task-scheduler/internal/storage"
	logx "github.com/MachariaP/task-scheduler/pkg/logx"
)

// App owns the composed services for one process.
type App struct {
	Log      logx.Logger
	Store    storage.Store
	Notifier *notify.Service
	Sched    *sched.Service
	Bus      eventbus.Bus

	logSvc *logx.Service
}

// New builds all services from cfg. The returned App must be Closed.
func New(cfg *config.Config) (*App, error) {
	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	storeCfg, err := storageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	notifyCfg, err := notifyConfig(cfg)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	notifier, err := notify.NewService(notifyCfg, log.With(logx.String("comp", "notify")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	bus := eventbus.New()

	schedCfg, err := schedConfig(cfg)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	engine, err := sched.New(schedCfg, store, notifier, log.With(logx.String("comp", "sched")), bus)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}

	return &App{
		Log:      log,
		Store:    store,
		Notifier: notifier,
		Sched:    engine,
		Bus:      bus,
		logSvc:   logSvc,
	}, nil
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
}

// Apply pushes a reloaded config into the live services. Storage and notifier
// transports are fixed for the process lifetime; logging and execution
// settings take effect immediately.
func (a *App) Apply(cfg *config.Config) error {
	schedCfg, err := schedConfig(cfg)
	if err != nil {
		return err
	}

	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.Sched.Apply(schedCfg)
	a.Log.Info("config applied", logx.Int("workers", schedCfg.Workers))
	return nil
}

// Validate is installed as the config manager's pre-publish hook.
func Validate(cfg *config.Config) error {
	if _, err := storageConfig(cfg); err != nil {
		return err
	}
	if _, err := notifyConfig(cfg); err != nil {
		return err
	}
	if _, err := schedConfig(cfg); err != nil {
		return err
	}
	return nil
}

func storageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func notifyConfig(cfg *config.Config) (notify.Config, error) {
	timeout, err := config.ParseDurationField("notifier.send_timeout", cfg.Notifier.SendTimeout)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{
		Enabled:     cfg.Notifier.Enabled,
		Channel:     cfg.Notifier.Channel,
		RatePerSec:  cfg.Notifier.RatePerSec,
		SendTimeout: timeout,
		Telegram: notify.TelegramConfig{
			Token:  cfg.Notifier.Telegram.Token,
			ChatID: cfg.Notifier.Telegram.ChatID,
		},
		SMTP: notify.SMTPConfig{
			Host:     cfg.Notifier.SMTP.Host,
			Port:     cfg.Notifier.SMTP.Port,
			From:     cfg.Notifier.SMTP.From,
			To:       cfg.Notifier.SMTP.To,
			Username: cfg.Notifier.SMTP.Username,
			Password: cfg.Notifier.SMTP.Password,
		},
	}, nil
}

func schedConfig(cfg *config.Config) (sched.Config, error) {
	minD, err := config.ParseDurationOrDefault("scheduler.workload_min", cfg.Scheduler.WorkloadMin, 1*time.Second)
	if err != nil {
		return sched.Config{}, err
	}
	maxD, err := config.ParseDurationOrDefault("scheduler.workload_max", cfg.Scheduler.WorkloadMax, 5*time.Second)
	if err != nil {
		return sched.Config{}, err
	}
	if cfg.Scheduler.Workers < 0 {
		return sched.Config{}, fmt.Errorf("scheduler.workers must be >= 1 (or 0 for the default)")
	}
	return sched.Config{
		Workers:  cfg.Scheduler.Workers,
		Workload: sched.SimulateWorkload(minD, maxD),
	}, nil
}
