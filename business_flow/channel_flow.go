package businessflow

import (
	"context"
	"fmt"

	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/repository"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
)

// DiscordGateway reads guild structure from the Discord API
type DiscordGateway interface {
	GuildTextChannels(ctx context.Context, guildID string) ([]*models.Channel, error)
}

// ChannelFlow handles channel listing and sync business logic
type ChannelFlow interface {
	ListChannels(ctx context.Context, req *dto.ListChannelsRequest, metadata *ClientMetadata) (*dto.ListChannelsResponse, error)
	SyncChannels(ctx context.Context, req *dto.SyncChannelsRequest, metadata *ClientMetadata) (*dto.SyncChannelsResponse, error)
	SetChannelScanEnabled(ctx context.Context, req *dto.SetChannelScanEnabledRequest, metadata *ClientMetadata) (*dto.SetChannelScanEnabledResponse, error)
}

// ChannelFlowImpl implements the channel business flow
type ChannelFlowImpl struct {
	guildRepo   repository.GuildRepository
	channelRepo repository.ChannelRepository
	statusRepo  repository.ScanStatusRepository
	discord     DiscordGateway
}

// NewChannelFlow creates a new channel flow instance
func NewChannelFlow(
	guildRepo repository.GuildRepository,
	channelRepo repository.ChannelRepository,
	statusRepo repository.ScanStatusRepository,
	discord DiscordGateway,
) ChannelFlow {
	return &ChannelFlowImpl{
		guildRepo:   guildRepo,
		channelRepo: channelRepo,
		statusRepo:  statusRepo,
		discord:     discord,
	}
}

// ListChannels returns the guild's channels joined with their scan records.
// Statuses come from one bulk read rather than a query per channel.
func (c *ChannelFlowImpl) ListChannels(ctx context.Context, req *dto.ListChannelsRequest, metadata *ClientMetadata) (*dto.ListChannelsResponse, error) {
	if err := c.requireOwnership(ctx, req.GuildID, req.UserID); err != nil {
		return nil, err
	}

	channels, err := c.channelRepo.ListByGuild(ctx, req.GuildID)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_LIST_FAILED", "Failed to list channels", err)
	}

	channelIDs := make([]string, 0, len(channels))
	for _, ch := range channels {
		channelIDs = append(channelIDs, ch.ChannelID)
	}

	statusByChannel := make(map[string]*models.ChannelScanStatus, len(channelIDs))
	if len(channelIDs) > 0 {
		statuses, err := c.statusRepo.ByChannels(ctx, req.GuildID, channelIDs)
		if err != nil {
			return nil, NewBusinessError("SCAN_STATUS_LOOKUP_FAILED", "Failed to load scan statuses", err)
		}
		for _, status := range statuses {
			if status.DeletedAt == nil {
				statusByChannel[status.ChannelID] = status
			}
		}
	}

	out := make([]dto.ChannelWithScanStatus, 0, len(channels))
	for _, ch := range channels {
		entry := dto.ChannelWithScanStatus{
			ChannelID:          ch.ChannelID,
			Name:               ch.Name,
			Position:           ch.Position,
			MessageScanEnabled: utils.IsTrue(ch.MessageScanEnabled),
		}
		if status, ok := statusByChannel[ch.ChannelID]; ok {
			statusDTO := ToChannelScanStatusDTO(*status)
			entry.ScanStatus = &statusDTO
		}
		out = append(out, entry)
	}

	return &dto.ListChannelsResponse{
		Message:  "Channels retrieved successfully",
		Channels: out,
	}, nil
}

// SyncChannels refreshes the stored channel list from Discord. Channels that
// disappeared upstream are soft-deleted; manual scan toggles survive the sync.
func (c *ChannelFlowImpl) SyncChannels(ctx context.Context, req *dto.SyncChannelsRequest, metadata *ClientMetadata) (*dto.SyncChannelsResponse, error) {
	if err := c.requireOwnership(ctx, req.GuildID, req.UserID); err != nil {
		return nil, err
	}

	channels, err := c.discord.GuildTextChannels(ctx, req.GuildID)
	if err != nil {
		return nil, NewBusinessError("DISCORD_UNAVAILABLE", "Failed to fetch channels from Discord", ErrDiscordUnavailable)
	}

	if len(channels) > 0 {
		if err := c.channelRepo.UpsertFromDiscord(ctx, channels); err != nil {
			return nil, NewBusinessError("CHANNEL_SYNC_FAILED", "Failed to persist synced channels", err)
		}
	}

	keep := make([]string, 0, len(channels))
	for _, ch := range channels {
		keep = append(keep, ch.ChannelID)
	}
	removed, err := c.channelRepo.SoftDeleteMissing(ctx, req.GuildID, keep)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_SYNC_FAILED", "Failed to prune removed channels", err)
	}

	return &dto.SyncChannelsResponse{
		Message:        fmt.Sprintf("Synced %d channels", len(channels)),
		ChannelCount:   len(channels),
		RemovedCount:   removed,
		SyncedChannels: len(channels),
	}, nil
}

// SetChannelScanEnabled toggles message scanning for one channel. Disabling
// only blocks new dispatches; a scan already in flight runs to completion.
func (c *ChannelFlowImpl) SetChannelScanEnabled(ctx context.Context, req *dto.SetChannelScanEnabledRequest, metadata *ClientMetadata) (*dto.SetChannelScanEnabledResponse, error) {
	if err := c.requireOwnership(ctx, req.GuildID, req.UserID); err != nil {
		return nil, err
	}

	channel, err := c.channelRepo.ByGuildAndChannel(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_LOOKUP_FAILED", "Failed to lookup channel", err)
	}
	if channel == nil || channel.DeletedAt != nil {
		return nil, NewBusinessError("CHANNEL_NOT_FOUND", "Channel not found", ErrChannelNotFound)
	}

	enabled := utils.IsTrue(req.Enabled)
	if err := c.channelRepo.SetScanEnabled(ctx, req.GuildID, req.ChannelID, enabled); err != nil {
		return nil, NewBusinessError("CHANNEL_UPDATE_FAILED", "Failed to update channel scan setting", err)
	}

	return &dto.SetChannelScanEnabledResponse{
		Message: "Channel scan setting updated",
		Enabled: enabled,
	}, nil
}

func (c *ChannelFlowImpl) requireOwnership(ctx context.Context, guildID, userID string) error {
	owned, err := c.guildRepo.IsOwnedBy(ctx, guildID, userID)
	if err != nil {
		return NewBusinessError("OWNERSHIP_CHECK_FAILED", "Failed to check guild ownership", err)
	}
	if !owned {
		return NewBusinessError("UNAUTHORIZED", "User does not own this guild", ErrUnauthorized)
	}
	return nil
}
