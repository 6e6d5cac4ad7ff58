package repository

import (
	"context"
	"fmt"

	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"gorm.io/gorm"
)

// ClipRepositoryImpl implements ClipRepository using GORM
type ClipRepositoryImpl struct {
	*BaseRepository[models.Clip, models.ClipFilter]
}

// NewClipRepository creates a new clip repository instance
func NewClipRepository(db *gorm.DB) ClipRepository {
	return &ClipRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Clip, models.ClipFilter](db),
	}
}

func (r *ClipRepositoryImpl) ListByChannel(ctx context.Context, guildID, channelID string, limit, offset int) ([]*models.Clip, error) {
	db := r.getDB(ctx)

	var clips []*models.Clip
	query := db.Where("guild_id = ? AND channel_id = ? AND deleted_at IS NULL", guildID, channelID).
		Order("posted_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("failed to list clips for channel %s: %w", channelID, err)
	}

	return clips, nil
}

func (r *ClipRepositoryImpl) CountByChannel(ctx context.Context, guildID, channelID string) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Clip{}).
		Where("guild_id = ? AND channel_id = ? AND deleted_at IS NULL", guildID, channelID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clips for channel %s: %w", channelID, err)
	}

	return count, nil
}

func (r *ClipRepositoryImpl) ByFilter(ctx context.Context, filter models.ClipFilter, orderBy string, limit, offset int) ([]*models.Clip, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db, filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var clips []*models.Clip
	if err := query.Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("failed to find clips by filter: %w", err)
	}

	return clips, nil
}

func (r *ClipRepositoryImpl) Count(ctx context.Context, filter models.ClipFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.Clip{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clips: %w", err)
	}

	return count, nil
}

func (r *ClipRepositoryImpl) applyFilter(db *gorm.DB, filter models.ClipFilter) *gorm.DB {
	db = db.Where("deleted_at IS NULL")
	if filter.GuildID != nil {
		db = db.Where("guild_id = ?", *filter.GuildID)
	}
	if filter.ChannelID != nil {
		db = db.Where("channel_id = ?", *filter.ChannelID)
	}
	if filter.AuthorID != nil {
		db = db.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.PostedAfter != nil {
		db = db.Where("posted_at >= ?", *filter.PostedAfter)
	}
	if filter.PostedBefore != nil {
		db = db.Where("posted_at <= ?", *filter.PostedBefore)
	}
	return db
}
