package notify

import (
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/clawscope/internal/config"
)

type mockBot struct {
	sent    []tgbotapi.MessageConfig
	sendErr error
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func mockFactory(bot *mockBot) BotFactory {
	return func(token string) (TelegramBot, error) {
		return bot, nil
	}
}

func TestNewTelegramValidation(t *testing.T) {
	bot := &mockBot{}

	if _, err := NewTelegramWithFactory(config.TelegramConfig{ChatID: 42}, mockFactory(bot)); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewTelegramWithFactory(config.TelegramConfig{Token: "t"}, mockFactory(bot)); err == nil {
		t.Fatal("expected error for missing chat id")
	}
	if _, err := NewTelegramWithFactory(config.TelegramConfig{Token: "t", ChatID: 42}, mockFactory(bot)); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestNewTelegramFactoryError(t *testing.T) {
	factory := func(token string) (TelegramBot, error) {
		return nil, fmt.Errorf("network down")
	}
	if _, err := NewTelegramWithFactory(config.TelegramConfig{Token: "t", ChatID: 42}, factory); err == nil {
		t.Fatal("expected factory error to propagate")
	}
}

func TestSend(t *testing.T) {
	bot := &mockBot{}
	n, err := NewTelegramWithFactory(config.TelegramConfig{Token: "t", ChatID: 42}, mockFactory(bot))
	if err != nil {
		t.Fatalf("NewTelegramWithFactory: %v", err)
	}

	if err := n.Send("refresh: 12 events"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	if bot.sent[0].ChatID != 42 || bot.sent[0].Text != "refresh: 12 events" {
		t.Fatalf("message=%+v", bot.sent[0])
	}
}

func TestSendError(t *testing.T) {
	bot := &mockBot{sendErr: fmt.Errorf("blocked by user")}
	n, err := NewTelegramWithFactory(config.TelegramConfig{Token: "t", ChatID: 42}, mockFactory(bot))
	if err != nil {
		t.Fatalf("NewTelegramWithFactory: %v", err)
	}
	if err := n.Send("hello"); err == nil {
		t.Fatal("expected send error")
	}
}
