package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"gorm.io/gorm"
)

// ScanStatus represents the lifecycle state of a channel scan
type ScanStatus string

const (
	ScanStatusQueued    ScanStatus = "queued"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusSucceeded ScanStatus = "succeeded"
	ScanStatusFailed    ScanStatus = "failed"
	ScanStatusCancelled ScanStatus = "cancelled"
)

// String returns the string representation of the status
func (s ScanStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ScanStatus) Valid() bool {
	switch s {
	case ScanStatusQueued, ScanStatusRunning, ScanStatusSucceeded,
		ScanStatusFailed, ScanStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether a scan job currently owns the channel.
// No new dispatch may be accepted while active.
func (s ScanStatus) IsActive() bool {
	return s == ScanStatusQueued || s == ScanStatusRunning
}

// IsTerminal reports whether the status is a terminal state
func (s ScanStatus) IsTerminal() bool {
	return s == ScanStatusSucceeded || s == ScanStatusFailed || s == ScanStatusCancelled
}

// Scan implements the sql.Scanner interface for ScanStatus
func (s *ScanStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ScanStatus(v)
	case []byte:
		*s = ScanStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ScanStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ScanStatus
func (s ScanStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ScanStatus: %s", s)
	}
	return string(s), nil
}

// ChannelScanStatus is the durable per-channel scan record. One row per
// (guild_id, channel_id); a missing or soft-deleted row means the channel
// has never been scanned.
type ChannelScanStatus struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	GuildID              string     `gorm:"not null;uniqueIndex:uk_channel_scan_statuses_guild_channel;index:idx_channel_scan_statuses_guild_id" json:"guild_id"`
	ChannelID            string     `gorm:"not null;uniqueIndex:uk_channel_scan_statuses_guild_channel" json:"channel_id"`
	Status               ScanStatus `gorm:"type:channel_scan_status;not null;index:idx_channel_scan_statuses_status" json:"status"`
	MessageCount         int64      `gorm:"not null;default:0" json:"message_count"`
	TotalMessagesScanned int64      `gorm:"not null;default:0" json:"total_messages_scanned"`
	ForwardMessageID     *string    `json:"forward_message_id,omitempty"`
	BackwardMessageID    *string    `json:"backward_message_id,omitempty"`
	ErrorMessage         *string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt            time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
	DeletedAt            *time.Time `gorm:"index:idx_channel_scan_statuses_deleted_at" json:"deleted_at,omitempty"`
}

// TableName returns the table name for the model
func (ChannelScanStatus) TableName() string {
	return "channel_scan_statuses"
}

// BeforeCreate is called before creating a new record
func (c *ChannelScanStatus) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = ScanStatusQueued
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *ChannelScanStatus) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsDispatchable reports whether a new scan may be accepted for this row.
// Soft-deleted rows count as unscanned and are dispatchable.
func (c *ChannelScanStatus) IsDispatchable() bool {
	if c.DeletedAt != nil {
		return true
	}
	return !c.Status.IsActive()
}

// CanTransitionTo checks if the scan status can move to the given state.
// The coordinator only performs the transition into QUEUED; the worker owns
// RUNNING and the terminal states.
func (c *ChannelScanStatus) CanTransitionTo(next ScanStatus) bool {
	switch c.Status {
	case ScanStatusQueued:
		return next == ScanStatusRunning || next == ScanStatusFailed || next == ScanStatusCancelled
	case ScanStatusRunning:
		return next == ScanStatusSucceeded || next == ScanStatusFailed || next == ScanStatusCancelled
	case ScanStatusSucceeded, ScanStatusFailed, ScanStatusCancelled:
		return next == ScanStatusQueued
	default:
		return false
	}
}

// ScannedRange returns the known cursor window. Soft-deleted rows report no
// window so callers plan a fresh first scan.
func (c *ChannelScanStatus) ScannedRange() (forward, backward *string) {
	if c.DeletedAt != nil {
		return nil, nil
	}
	return c.ForwardMessageID, c.BackwardMessageID
}

// ScanProgress carries one batch worth of worker progress. Counter deltas are
// added to the row; cursor ids only ever widen the scanned window.
type ScanProgress struct {
	MessagesScanned   int64   `json:"messages_scanned"`
	ClipMessagesFound int64   `json:"clip_messages_found"`
	ForwardMessageID  *string `json:"forward_message_id,omitempty"`
	BackwardMessageID *string `json:"backward_message_id,omitempty"`
}

// ChannelScanStatusFilter represents filter criteria for scan status rows
type ChannelScanStatusFilter struct {
	GuildID       *string     `json:"guild_id,omitempty"`
	ChannelID     *string     `json:"channel_id,omitempty"`
	Status        *ScanStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time  `json:"created_after,omitempty"`
	CreatedBefore *time.Time  `json:"created_before,omitempty"`
}
