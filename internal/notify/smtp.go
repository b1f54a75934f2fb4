package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// smtpSender delivers notifications as plain-text email.
type smtpSender struct {
	cfg  SMTPConfig
	addr string
}

func newSMTPSender(cfg SMTPConfig) (*smtpSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is empty")
	}
	if strings.TrimSpace(cfg.From) == "" || strings.TrimSpace(cfg.To) == "" {
		return nil, errors.New("smtp from/to are required")
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	return &smtpSender{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
	}, nil
}

func (s *smtpSender) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.cfg.From, s.cfg.To, sanitizeHeader(subject), body,
	)

	// net/smtp has no context support; run the dial+send in a goroutine and
	// honor ctx by abandoning the attempt. The connection times out on its own.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, auth, s.cfg.From, []string{s.cfg.To}, []byte(msg))
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sanitizeHeader strips CR/LF so task names cannot inject extra headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
