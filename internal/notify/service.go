package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "github.com/MachariaP/task-scheduler/pkg/logx"
)

const historyMax = 300

// HistoryItem records one delivery attempt for diagnostics.
type HistoryItem struct {
	At      time.Time
	Subject string
	Error   string
}

// Service rate-limits and dispatches notifications through a Sender.
//
// It is safe for concurrent use. Send returns the transport error so callers
// can log it, but callers must treat delivery as best-effort.
type Service struct {
	log     logx.Logger
	sender  Sender
	limiter *rate.Limiter

	mu  sync.Mutex
	cfg Config

	hmu     sync.Mutex
	history []HistoryItem
}

// NewService builds the notification service for the configured channel.
func NewService(cfg Config, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	applyDefaults(&cfg)

	var sender Sender
	if cfg.Enabled {
		var err error
		sender, err = newSender(cfg, log)
		if err != nil {
			return nil, err
		}
	}
	return newServiceWith(cfg, sender, log), nil
}

// newServiceWith wires an explicit sender; tests use it to inject fakes.
func newServiceWith(cfg Config, sender Sender, log logx.Logger) *Service {
	applyDefaults(&cfg)
	return &Service{
		log:    log,
		sender: sender,
		// Token bucket: burst = rate per sec, so short spikes don't block too hard.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		cfg:     cfg,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
}

func newSender(cfg Config, log logx.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Channel)) {
	case "telegram":
		return newTelegramSender(cfg.Telegram)
	case "smtp", "email":
		return newSMTPSender(cfg.SMTP)
	case "", "log":
		return logSender{log: log}, nil
	default:
		return nil, fmt.Errorf("unknown notify channel %q", cfg.Channel)
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

// Send delivers one message. Disabled service is a silent no-op.
func (s *Service) Send(ctx context.Context, subject, body string) error {
	s.mu.Lock()
	cfg := s.cfg
	sender := s.sender
	lim := s.limiter
	s.mu.Unlock()

	if !cfg.Enabled || sender == nil {
		return nil
	}

	if err := lim.Wait(ctx); err != nil {
		s.record(subject, err)
		return fmt.Errorf("notify rate wait: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	err := sender.Send(sctx, subject, body)
	cancel()

	s.record(subject, err)
	if err != nil {
		s.log.Warn("notification send failed", logx.String("subject", subject), logx.Err(err))
		return err
	}
	s.log.Debug("notification sent", logx.String("subject", subject), logx.String("channel", cfg.Channel))
	return nil
}

func (s *Service) record(subject string, err error) {
	item := HistoryItem{At: time.Now(), Subject: subject}
	if err != nil && !errors.Is(err, ErrDisabled) {
		item.Error = err.Error()
	}
	s.hmu.Lock()
	s.history = append(s.history, item)
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	s.hmu.Unlock()
}

// History returns a copy of recent delivery attempts.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	out := make([]HistoryItem, len(s.history))
	copy(out, s.history)
	return out
}

// logSender writes notifications to the log instead of an external transport.
// It is the default channel, useful for local runs without credentials.
type logSender struct {
	log logx.Logger
}

func (l logSender) Send(_ context.Context, subject, body string) error {
	l.log.Info("notification", logx.String("subject", subject), logx.String("body", body))
	return nil
}
