package models

import (
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"gorm.io/gorm"
)

// Guild represents a Discord guild registered on the dashboard
type Guild struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	GuildID     string     `gorm:"not null;uniqueIndex:uk_guilds_guild_id" json:"guild_id"`
	Name        string     `gorm:"not null" json:"name"`
	OwnerUserID string     `gorm:"not null;index:idx_guilds_owner_user_id" json:"owner_user_id"`
	IconURL     *string    `json:"icon_url,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Relations
	Channels []Channel `gorm:"foreignKey:GuildID;references:GuildID" json:"channels,omitempty"`
}

// TableName returns the table name for the model
func (Guild) TableName() string {
	return "guilds"
}

// BeforeCreate is called before creating a new record
func (g *Guild) BeforeCreate(tx *gorm.DB) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (g *Guild) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	g.UpdatedAt = &now
	return nil
}

// IsOwnedBy reports whether the given dashboard user owns this guild
func (g *Guild) IsOwnedBy(userID string) bool {
	return g.DeletedAt == nil && g.OwnerUserID == userID
}
