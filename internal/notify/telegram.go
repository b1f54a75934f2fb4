package notify

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// telegramSender delivers notifications to a single chat.
//
// The bot is created offline: token validation happens on the first send, so
// the scheduler can start without network access.
type telegramSender struct {
	bot    *tele.Bot
	chatID int64
}

func newTelegramSender(cfg TelegramConfig) (*telegramSender, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:       cfg.Token,
		Synchronous: true,
		Offline:     true,
	})
	if err != nil {
		return nil, err
	}
	return &telegramSender{bot: b, chatID: cfg.ChatID}, nil
}

func (t *telegramSender) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := subject
	if strings.TrimSpace(body) != "" {
		msg += "\n" + body
	}
	_, err := t.bot.Send(&tele.Chat{ID: t.chatID}, msg, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}
