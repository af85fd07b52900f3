// Package notify delivers watch-mode refresh reports to the operator.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/clawscope/internal/config"
)

// Notifier sends a short operator-facing message.
type Notifier interface {
	Send(text string) error
}

// TelegramBot is the subset of the bot API we use (allows mocking in tests).
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotFactory creates TelegramBot instances (allows mocking).
type BotFactory func(token string) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token string) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return bot, nil
}

type TelegramNotifier struct {
	bot    TelegramBot
	chatID int64
}

// NewTelegram builds a send-only notifier from config.
func NewTelegram(cfg config.TelegramConfig) (*TelegramNotifier, error) {
	return NewTelegramWithFactory(cfg, defaultBotFactory)
}

// NewTelegramWithFactory creates a TelegramNotifier with a custom bot
// factory (for testing).
func NewTelegramWithFactory(cfg config.TelegramConfig, factory BotFactory) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	bot, err := factory(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: cfg.ChatID}, nil
}

func (n *TelegramNotifier) Send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
