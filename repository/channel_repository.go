package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChannelRepositoryImpl implements ChannelRepository using GORM
type ChannelRepositoryImpl struct {
	*BaseRepository[models.Channel, models.ChannelFilter]
}

// NewChannelRepository creates a new channel repository instance
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &ChannelRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Channel, models.ChannelFilter](db),
	}
}

func (r *ChannelRepositoryImpl) ByGuildAndChannel(ctx context.Context, guildID, channelID string) (*models.Channel, error) {
	db := r.getDB(ctx)

	var channel models.Channel
	err := db.Where("guild_id = ? AND channel_id = ?", guildID, channelID).First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find channel %s in guild %s: %w", channelID, guildID, err)
	}

	return &channel, nil
}

func (r *ChannelRepositoryImpl) ListByGuild(ctx context.Context, guildID string) ([]*models.Channel, error) {
	db := r.getDB(ctx)

	var channels []*models.Channel
	err := db.Where("guild_id = ? AND deleted_at IS NULL", guildID).
		Order("position ASC, channel_id ASC").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list channels for guild %s: %w", guildID, err)
	}

	return channels, nil
}

// UpsertFromDiscord refreshes channel rows from a Discord API snapshot.
// Scan enablement is an operator setting, so the upsert never overwrites it.
func (r *ChannelRepositoryImpl) UpsertFromDiscord(ctx context.Context, channels []*models.Channel) error {
	if len(channels) == 0 {
		return nil
	}

	db := r.getDB(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}, {Name: "channel_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":       gorm.Expr("excluded.name"),
			"position":   gorm.Expr("excluded.position"),
			"deleted_at": nil,
			"updated_at": utils.UTCNow(),
		}),
	}).Create(&channels).Error
	if err != nil {
		return fmt.Errorf("failed to upsert channels: %w", err)
	}

	return nil
}

// SoftDeleteMissing marks channels that no longer exist on Discord as
// deleted. Returns the number of channels tombstoned.
func (r *ChannelRepositoryImpl) SoftDeleteMissing(ctx context.Context, guildID string, keepChannelIDs []string) (int64, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.Channel{}).
		Where("guild_id = ? AND deleted_at IS NULL", guildID)
	if len(keepChannelIDs) > 0 {
		query = query.Where("channel_id NOT IN ?", keepChannelIDs)
	}

	now := utils.UTCNow()
	res := query.Updates(map[string]any{
		"deleted_at": now,
		"updated_at": now,
	})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to soft-delete missing channels for guild %s: %w", guildID, res.Error)
	}

	return res.RowsAffected, nil
}

func (r *ChannelRepositoryImpl) SetScanEnabled(ctx context.Context, guildID, channelID string, enabled bool) error {
	db := r.getDB(ctx)

	res := db.Model(&models.Channel{}).
		Where("guild_id = ? AND channel_id = ? AND deleted_at IS NULL", guildID, channelID).
		Updates(map[string]any{
			"message_scan_enabled": enabled,
			"updated_at":           utils.UTCNow(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update scan enablement for channel %s: %w", channelID, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *ChannelRepositoryImpl) ByFilter(ctx context.Context, filter models.ChannelFilter, orderBy string, limit, offset int) ([]*models.Channel, error) {
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

	var channels []*models.Channel
	if err := query.Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to find channels by filter: %w", err)
	}

	return channels, nil
}

func (r *ChannelRepositoryImpl) Count(ctx context.Context, filter models.ChannelFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.Channel{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count channels: %w", err)
	}

	return count, nil
}

func (r *ChannelRepositoryImpl) applyFilter(db *gorm.DB, filter models.ChannelFilter) *gorm.DB {
	if filter.GuildID != nil {
		db = db.Where("guild_id = ?", *filter.GuildID)
	}
	if filter.ChannelID != nil {
		db = db.Where("channel_id = ?", *filter.ChannelID)
	}
	if filter.MessageScanEnabled != nil {
		db = db.Where("message_scan_enabled = ?", *filter.MessageScanEnabled)
	}
	if !filter.IncludeDeleted {
		db = db.Where("deleted_at IS NULL")
	}
	return db
}
