package dto

// ChannelWithScanStatus pairs a channel with its scan record for the
// dashboard channel listing. ScanStatus is nil for unscanned channels.
type ChannelWithScanStatus struct {
	ChannelID          string                `json:"channel_id"`
	Name               string                `json:"name"`
	Position           int                   `json:"position"`
	MessageScanEnabled bool                  `json:"message_scan_enabled"`
	ScanStatus         *ChannelScanStatusDTO `json:"scan_status,omitempty"`
}

// ListChannelsRequest represents the request to list a guild's channels
type ListChannelsRequest struct {
	GuildID string `json:"-"`
	UserID  string `json:"-"`
}

// ListChannelsResponse represents the channel listing with scan statuses
type ListChannelsResponse struct {
	Message  string                  `json:"message"`
	Channels []ChannelWithScanStatus `json:"channels"`
}

// SyncChannelsRequest represents the request to refresh a guild's channels
// from the Discord API
type SyncChannelsRequest struct {
	GuildID string `json:"-"`
	UserID  string `json:"-"`
}

// SyncChannelsResponse reports the outcome of a channel sync
type SyncChannelsResponse struct {
	Message        string `json:"message"`
	ChannelCount   int    `json:"channel_count"`
	RemovedCount   int64  `json:"removed_count"`
	SyncedChannels int    `json:"synced_channels"`
}

// SetChannelScanEnabledRequest toggles scanning for one channel
type SetChannelScanEnabledRequest struct {
	GuildID   string `json:"-"`
	ChannelID string `json:"-"`
	UserID    string `json:"-"`
	Enabled   *bool  `json:"enabled" validate:"required"`
}

// SetChannelScanEnabledResponse confirms the toggle
type SetChannelScanEnabledResponse struct {
	Message string `json:"message"`
	Enabled bool   `json:"enabled"`
}
