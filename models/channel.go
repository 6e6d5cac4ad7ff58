package models

import (
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"gorm.io/gorm"
)

// Channel represents a Discord text channel known to the dashboard.
// Rows are kept in sync with the Discord API by the channel sync service;
// channels that disappear from Discord are soft-deleted, not removed.
type Channel struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	GuildID            string     `gorm:"not null;uniqueIndex:uk_channels_guild_channel;index:idx_channels_guild_id" json:"guild_id"`
	ChannelID          string     `gorm:"not null;uniqueIndex:uk_channels_guild_channel" json:"channel_id"`
	Name               string     `gorm:"not null" json:"name"`
	Position           int        `gorm:"not null;default:0" json:"position"`
	MessageScanEnabled *bool      `gorm:"not null;default:true" json:"message_scan_enabled"`
	CreatedAt          time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
	DeletedAt          *time.Time `gorm:"index:idx_channels_deleted_at" json:"deleted_at,omitempty"`
}

// TableName returns the table name for the model
func (Channel) TableName() string {
	return "channels"
}

// BeforeCreate is called before creating a new record
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.MessageScanEnabled == nil {
		c.MessageScanEnabled = utils.ToPtr(true)
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Channel) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsScannable reports whether scan jobs may be dispatched for this channel
func (c *Channel) IsScannable() bool {
	return c.DeletedAt == nil && utils.IsTrue(c.MessageScanEnabled)
}

// ChannelFilter represents filter criteria for channels
type ChannelFilter struct {
	GuildID            *string `json:"guild_id,omitempty"`
	ChannelID          *string `json:"channel_id,omitempty"`
	MessageScanEnabled *bool   `json:"message_scan_enabled,omitempty"`
	IncludeDeleted     bool    `json:"include_deleted,omitempty"`
}
