package telegram

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/config"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

// Notifier mirrors published updates to a Telegram chat
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier creates new Telegram notifier. Returns (nil, nil) when the
// channel is disabled; errors only when enabled credentials are rejected.
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if !cfg.Enabled || cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, nil
	}

	return newNotifier(cfg.BotToken, tgbotapi.APIEndpoint, cfg.ChatID)
}

func newNotifier(botToken, endpoint string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
		zap.Int64("chat_id", chatID),
	)

	return &Notifier{api: bot, chatID: chatID}, nil
}

// GetName returns channel name
func (n *Notifier) GetName() string {
	return "telegram"
}

// Send posts text to the configured chat. Failures are logged and
// reported as false, never as errors, so a dead side channel cannot
// block publishing.
func (n *Notifier) Send(ctx context.Context, text string) bool {
	if ctx.Err() != nil {
		logger.Warn("skipping telegram send, context done", zap.Error(ctx.Err()))
		return false
	}

	// HTML parse mode, so entity characters in the tweet text must be
	// escaped or the API rejects the message
	msg := tgbotapi.NewMessage(n.chatID, html.EscapeString(text))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.api.Send(msg); err != nil {
		logger.Warn("failed to send telegram message",
			zap.Int64("chat_id", n.chatID),
			zap.Error(err),
		)
		return false
	}

	return true
}
