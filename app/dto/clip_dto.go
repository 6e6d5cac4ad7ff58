package dto

import (
	"time"
)

// ClipDTO is the read-model view of one archived clip
type ClipDTO struct {
	MessageID    string    `json:"message_id"`
	AttachmentID string    `json:"attachment_id"`
	AuthorID     string    `json:"author_id"`
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	DurationSecs *float64  `json:"duration_secs,omitempty"`
	PostedAt     time.Time `json:"posted_at"`
}

// ListClipsRequest represents the request to list a channel's clips
type ListClipsRequest struct {
	GuildID   string `json:"-"`
	ChannelID string `json:"-"`
	UserID    string `json:"-"`
	Page      int    `json:"page" validate:"omitempty,min=1"`
	PageSize  int    `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListClipsResponse represents the paginated clip listing
type ListClipsResponse struct {
	Message  string    `json:"message"`
	Clips    []ClipDTO `json:"clips"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
