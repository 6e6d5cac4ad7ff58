package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"gorm.io/gorm"
)

// GuildRepositoryImpl implements GuildRepository using GORM
type GuildRepositoryImpl struct {
	*BaseRepository[models.Guild, any]
}

// NewGuildRepository creates a new guild repository instance
func NewGuildRepository(db *gorm.DB) GuildRepository {
	return &GuildRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Guild, any](db),
	}
}

func (r *GuildRepositoryImpl) ByGuildID(ctx context.Context, guildID string) (*models.Guild, error) {
	db := r.getDB(ctx)

	var guild models.Guild
	err := db.Where("guild_id = ? AND deleted_at IS NULL", guildID).First(&guild).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find guild %s: %w", guildID, err)
	}

	return &guild, nil
}

// IsOwnedBy is the coordinator's authorization gate: only the dashboard user
// who registered the guild may dispatch scans for it.
func (r *GuildRepositoryImpl) IsOwnedBy(ctx context.Context, guildID, userID string) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Guild{}).
		Where("guild_id = ? AND owner_user_id = ? AND deleted_at IS NULL", guildID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check guild ownership for %s: %w", guildID, err)
	}

	return count > 0, nil
}
