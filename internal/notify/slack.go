package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

const slackMaxMsgLen = 4000

// Slack delivers messages to Slack users over the Web API.
type Slack struct {
	client *slack.Client
	logger *slog.Logger
}

// SlackConfig configures the Slack sender.
type SlackConfig struct {
	BotToken string
	Logger   *slog.Logger
}

func NewSlack(cfg SlackConfig) *Slack {
	return &Slack{client: slack.New(cfg.BotToken), logger: cfg.Logger}
}

// Send opens the DM conversation with the user and posts the text.
func (s *Slack) Send(ctx context.Context, userID, text string) error {
	if len(text) > slackMaxMsgLen {
		text = text[:slackMaxMsgLen]
	}
	channel, _, _, err := s.client.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return fmt.Errorf("open slack conversation with %s: %w", userID, err)
	}
	if _, _, err := s.client.PostMessageContext(ctx, channel.ID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post slack message to %s: %w", userID, err)
	}
	s.logger.Debug("slack message sent", "user", userID)
	return nil
}
