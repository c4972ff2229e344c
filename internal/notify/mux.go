// Package notify delivers receipts to users over their chat platform.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"paybot/internal/domain"
)

// Sender delivers a message to a platform-local subject (a Discord user
// id, a Telegram chat id, a Slack user id).
type Sender interface {
	Send(ctx context.Context, subject, text string) error
}

// Mux implements domain.Notifier by routing a platform-prefixed chat
// identity to the registered sender for that platform.
type Mux struct {
	senders map[string]Sender
	logger  *slog.Logger
}

func NewMux(logger *slog.Logger) *Mux {
	return &Mux{senders: make(map[string]Sender), logger: logger}
}

// Register attaches a sender for a platform prefix. Registration happens
// at startup, before any Notify call; Mux is read-only afterwards.
func (m *Mux) Register(platform string, sender Sender) {
	m.senders[platform] = sender
}

func (m *Mux) Notify(ctx context.Context, chatIdentity, text string) error {
	platform, subject := domain.SplitIdentity(chatIdentity)
	sender, ok := m.senders[platform]
	if !ok {
		return domain.WrapError(domain.KindDelivery,
			fmt.Sprintf("no notifier registered for platform %q", platform), nil)
	}
	if err := sender.Send(ctx, subject, text); err != nil {
		return domain.WrapError(domain.KindDelivery,
			fmt.Sprintf("deliver to %s", chatIdentity), err)
	}
	m.logger.Debug("notification delivered", "identity", chatIdentity)
	return nil
}
