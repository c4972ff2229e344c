package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

const discordMaxMsgLen = 2000

// Discord delivers messages to Discord users via direct message. Only
// the REST API is used; no gateway connection is opened.
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// DiscordConfig configures the Discord sender.
type DiscordConfig struct {
	Token  string
	Logger *slog.Logger
}

func NewDiscord(cfg DiscordConfig) (*Discord, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Discord{session: session, logger: cfg.Logger}, nil
}

// Send opens (or reuses) the DM channel with the user and posts the text.
func (d *Discord) Send(ctx context.Context, userID, text string) error {
	if len(text) > discordMaxMsgLen {
		text = text[:discordMaxMsgLen]
	}
	channel, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel with %s: %w", userID, err)
	}
	if _, err := d.session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", userID, err)
	}
	d.logger.Debug("discord dm sent", "user", userID)
	return nil
}
