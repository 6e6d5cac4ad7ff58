package dto

import (
	"time"
)

// ScanRequestOptions represents caller-tunable scan parameters. All fields
// are optional; zero values fall back to the documented defaults.
type ScanRequestOptions struct {
	// Direction flags form a priority chain: historical > backfill > update.
	// Setting more than one is tolerated, not rejected.
	IsUpdate     bool    `json:"is_update"`
	IsHistorical bool    `json:"is_historical"`
	IsBackfill   bool    `json:"is_backfill"`
	Limit        *int    `json:"limit,omitempty" validate:"omitempty,min=1"`
	AutoContinue *bool   `json:"auto_continue,omitempty"`
	Rescan       *string `json:"rescan,omitempty" validate:"omitempty,oneof=stop continue update"`
}

// StartChannelScanRequest represents the request to dispatch a scan for one channel
type StartChannelScanRequest struct {
	GuildID   string `json:"-"`
	ChannelID string `json:"-"`
	UserID    string `json:"-"`
	Options   ScanRequestOptions
}

// StartChannelScanResponse represents a successful scan dispatch
type StartChannelScanResponse struct {
	Message   string `json:"message"`
	JobID     string `json:"job_id"`
	MessageID string `json:"message_id"`
	Direction string `json:"direction"`
}

// StartMultipleChannelScansRequest represents the request to fan a scan out
// over many channels of one guild
type StartMultipleChannelScansRequest struct {
	GuildID    string   `json:"-"`
	UserID     string   `json:"-"`
	ChannelIDs []string `json:"channel_ids" validate:"required,min=1,dive,required"`
	Options    ScanRequestOptions
}

// ChannelScanOutcome is the per-channel result of a bulk dispatch. ErrorCode
// lets callers tell a benign "already running" skip from a real failure.
type ChannelScanOutcome struct {
	ChannelID string `json:"channel_id"`
	Success   bool   `json:"success"`
	JobID     string `json:"job_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// StartMultipleChannelScansResponse aggregates a bulk dispatch
type StartMultipleChannelScansResponse struct {
	Message      string               `json:"message"`
	SuccessCount int                  `json:"success_count"`
	FailedCount  int                  `json:"failed_count"`
	Results      []ChannelScanOutcome `json:"results"`
}

// ChannelScanStatusDTO is the read-model view of a channel's scan record
type ChannelScanStatusDTO struct {
	ChannelID            string     `json:"channel_id"`
	Status               string     `json:"status"`
	MessageCount         int64      `json:"message_count"`
	TotalMessagesScanned int64      `json:"total_messages_scanned"`
	ForwardMessageID     *string    `json:"forward_message_id,omitempty"`
	BackwardMessageID    *string    `json:"backward_message_id,omitempty"`
	ErrorMessage         *string    `json:"error_message,omitempty"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}
