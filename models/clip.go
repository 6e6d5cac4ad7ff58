package models

import (
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"gorm.io/gorm"
)

// Clip represents one archived video clip extracted from a Discord message.
// Rows are written by the ingestion worker; the dashboard only reads them.
type Clip struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	GuildID      string     `gorm:"not null;index:idx_clips_guild_id" json:"guild_id"`
	ChannelID    string     `gorm:"not null;index:idx_clips_channel_id" json:"channel_id"`
	MessageID    string     `gorm:"not null;uniqueIndex:uk_clips_message_attachment" json:"message_id"`
	AttachmentID string     `gorm:"not null;uniqueIndex:uk_clips_message_attachment" json:"attachment_id"`
	AuthorID     string     `gorm:"not null;index:idx_clips_author_id" json:"author_id"`
	Filename     string     `gorm:"not null" json:"filename"`
	URL          string     `gorm:"not null" json:"url"`
	ThumbnailURL *string    `json:"thumbnail_url,omitempty"`
	SizeBytes    int64      `gorm:"not null;default:0" json:"size_bytes"`
	DurationSecs *float64   `json:"duration_secs,omitempty"`
	PostedAt     time.Time  `gorm:"not null;index:idx_clips_posted_at" json:"posted_at"`
	CreatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// TableName returns the table name for the model
func (Clip) TableName() string {
	return "clips"
}

// BeforeCreate is called before creating a new record
func (c *Clip) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.PostedAt.IsZero() {
		c.PostedAt = utils.SnowflakeTime(c.MessageID)
	}
	return nil
}

// ClipFilter represents filter criteria for clips
type ClipFilter struct {
	GuildID      *string    `json:"guild_id,omitempty"`
	ChannelID    *string    `json:"channel_id,omitempty"`
	AuthorID     *string    `json:"author_id,omitempty"`
	PostedAfter  *time.Time `json:"posted_after,omitempty"`
	PostedBefore *time.Time `json:"posted_before,omitempty"`
}
