package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Config is the on-disk configuration. YAML and JSON are both accepted;
// unknown fields are rejected so typos are caught at load time.
//
// All duration fields are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`
	Notifier  NotifierConfig  `json:"notifier,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the task store.
//
// Example:
//
//	storage: { driver: sqlite, path: ./tasks.db }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// SchedulerConfig controls the execution engine.
//
// Defaults (when fields are omitted/zero):
//   - workers: 3
//   - workload_min / workload_max: "1s" / "5s" (simulated workload bounds)
type SchedulerConfig struct {
	Workers     int    `json:"workers,omitempty"`
	WorkloadMin string `json:"workload_min,omitempty"`
	WorkloadMax string `json:"workload_max,omitempty"`
}

// NotifierConfig controls the completion/failure notification channel.
type NotifierConfig struct {
	Enabled     bool   `json:"enabled"`
	Channel     string `json:"channel,omitempty"` // telegram | smtp | log
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`

	Telegram TelegramConfig `json:"telegram,omitempty"`
	SMTP     SMTPConfig     `json:"smtp,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
}

type SMTPConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Logging:   LoggingConfig{Level: "info", Console: true},
		Storage:   StorageConfig{Driver: "sqlite", Path: "./tasks.db"},
		Scheduler: SchedulerConfig{Workers: 3},
	}
}

// Load reads and strictly decodes the config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(path, b)
}

func decode(path string, b []byte) (*Config, error) {
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}
