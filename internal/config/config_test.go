package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "scheduler.yaml", `
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./tasks.db
  busy_timeout: 2s
scheduler:
  workers: 5
  workload_min: 100ms
  workload_max: 1s
notifier:
  enabled: true
  channel: telegram
  rate_per_sec: 2
  telegram:
    token: "123:abc"
    chat_id: 42
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Level = %s", cfg.Logging.Level)
	}
	if cfg.Scheduler.Workers != 5 {
		t.Fatalf("Workers = %d, want 5", cfg.Scheduler.Workers)
	}
	if cfg.Notifier.Telegram.ChatID != 42 {
		t.Fatalf("ChatID = %d, want 42", cfg.Notifier.Telegram.ChatID)
	}

	d, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		t.Fatalf("ParseDurationField error: %v", err)
	}
	if d != 2*time.Second {
		t.Fatalf("busy_timeout = %v", d)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "scheduler.yaml", `
scheduler:
  workerz: 5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "scheduler.json", `{"scheduler":{"workers":2}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Fatalf("Workers = %d, want 2", cfg.Scheduler.Workers)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 3*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "banana"); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
