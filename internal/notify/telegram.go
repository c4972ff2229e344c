package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMaxMsgLen = 4000

// Telegram delivers messages to Telegram chats.
type Telegram struct {
	bot       *tgbotapi.BotAPI
	parseMode string
	logger    *slog.Logger
}

// TelegramConfig configures the Telegram sender.
type TelegramConfig struct {
	Token     string
	ParseMode string
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	cfg.Logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)
	return &Telegram{bot: bot, parseMode: cfg.ParseMode, logger: cfg.Logger}, nil
}

// Send posts the text to a chat id. The bot API has no context support,
// so ctx only gates entry.
func (t *Telegram) Send(ctx context.Context, subject, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", subject, err)
	}
	if len(text) > telegramMaxMsgLen {
		text = text[:telegramMaxMsgLen]
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = t.parseMode
	if _, err := t.bot.Send(msg); err != nil {
		// Markdown parse failures are recoverable by resending as plain text.
		msg.ParseMode = ""
		if _, retryErr := t.bot.Send(msg); retryErr != nil {
			return fmt.Errorf("send telegram message to %d: %w", chatID, err)
		}
	}
	t.logger.Debug("telegram message sent", "chat", chatID)
	return nil
}
