package businessflow

import (
	"context"

	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/repository"
)

// ClipFlow handles read access to worker-archived clips
type ClipFlow interface {
	ListClips(ctx context.Context, req *dto.ListClipsRequest, metadata *ClientMetadata) (*dto.ListClipsResponse, error)
}

// ClipFlowImpl implements the clip business flow
type ClipFlowImpl struct {
	guildRepo repository.GuildRepository
	clipRepo  repository.ClipRepository
}

// NewClipFlow creates a new clip flow instance
func NewClipFlow(guildRepo repository.GuildRepository, clipRepo repository.ClipRepository) ClipFlow {
	return &ClipFlowImpl{
		guildRepo: guildRepo,
		clipRepo:  clipRepo,
	}
}

const defaultClipPageSize = 25

// ListClips returns one page of a channel's archived clips, newest first
func (f *ClipFlowImpl) ListClips(ctx context.Context, req *dto.ListClipsRequest, metadata *ClientMetadata) (*dto.ListClipsResponse, error) {
	owned, err := f.guildRepo.IsOwnedBy(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("OWNERSHIP_CHECK_FAILED", "Failed to check guild ownership", err)
	}
	if !owned {
		return nil, NewBusinessError("UNAUTHORIZED", "User does not own this guild", ErrUnauthorized)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultClipPageSize
	}

	clips, err := f.clipRepo.ListByChannel(ctx, req.GuildID, req.ChannelID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CLIP_LIST_FAILED", "Failed to list clips", err)
	}

	total, err := f.clipRepo.CountByChannel(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, NewBusinessError("CLIP_COUNT_FAILED", "Failed to count clips", err)
	}

	out := make([]dto.ClipDTO, 0, len(clips))
	for _, clip := range clips {
		out = append(out, ToClipDTO(*clip))
	}

	return &dto.ListClipsResponse{
		Message:  "Clips retrieved successfully",
		Clips:    out,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
