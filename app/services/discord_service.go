package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
	businessflow "github.com/cranberriez/DiscordClipSaver-sub001/business_flow"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
)

// DiscordService reads guild structure through a bot session. The session
// is REST-only here; no gateway connection is opened.
type DiscordService struct {
	session *discordgo.Session
}

// NewDiscordService creates a Discord gateway backed by a bot token
func NewDiscordService(botToken string) (businessflow.DiscordGateway, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}

	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &DiscordService{session: session}, nil
}

// NewDiscordServiceFromSession wraps an existing session, used by tests
func NewDiscordServiceFromSession(session *discordgo.Session) businessflow.DiscordGateway {
	return &DiscordService{session: session}
}

// GuildTextChannels fetches the guild's channels and returns the text-like
// ones (text and announcement channels) as channel models, ordered by
// Discord position.
func (d *DiscordService) GuildTextChannels(ctx context.Context, guildID string) ([]*models.Channel, error) {
	channels, err := d.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild channels: %w", err)
	}

	out := make([]*models.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText && ch.Type != discordgo.ChannelTypeGuildNews {
			continue
		}
		out = append(out, &models.Channel{
			GuildID:            guildID,
			ChannelID:          ch.ID,
			Name:               ch.Name,
			Position:           ch.Position,
			MessageScanEnabled: utils.ToPtr(true),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})

	return out, nil
}
