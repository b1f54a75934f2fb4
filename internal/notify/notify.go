// Package notify delivers best-effort, fire-and-forget messages after a task
// reaches a terminal status.
//
// Delivery failures never influence persisted task state; the scheduling core
// logs and moves on.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned when the notifier is configured off.
var ErrDisabled = errors.New("notifier disabled")

// Sender is one delivery transport (Telegram, SMTP, ...).
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// Config controls the notification service.
type Config struct {
	Enabled bool
	// Channel selects the transport: "telegram", "smtp" or "log".
	Channel string
	// RatePerSec bounds outbound sends (token bucket). Default 3.
	RatePerSec int
	// SendTimeout bounds a single delivery attempt. Default 10s.
	SendTimeout time.Duration

	Telegram TelegramConfig
	SMTP     SMTPConfig
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	To       string
	Username string
	Password string
}
