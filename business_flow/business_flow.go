// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for request tracing
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToChannelScanStatusDTO converts a scan status row to its read-model view
func ToChannelScanStatusDTO(status models.ChannelScanStatus) dto.ChannelScanStatusDTO {
	return dto.ChannelScanStatusDTO{
		ChannelID:            status.ChannelID,
		Status:               status.Status.String(),
		MessageCount:         status.MessageCount,
		TotalMessagesScanned: status.TotalMessagesScanned,
		ForwardMessageID:     status.ForwardMessageID,
		BackwardMessageID:    status.BackwardMessageID,
		ErrorMessage:         status.ErrorMessage,
		UpdatedAt:            status.UpdatedAt,
	}
}

// ToClipDTO converts a clip row to its read-model view
func ToClipDTO(clip models.Clip) dto.ClipDTO {
	return dto.ClipDTO{
		MessageID:    clip.MessageID,
		AttachmentID: clip.AttachmentID,
		AuthorID:     clip.AuthorID,
		Filename:     clip.Filename,
		URL:          clip.URL,
		ThumbnailURL: clip.ThumbnailURL,
		SizeBytes:    clip.SizeBytes,
		DurationSecs: clip.DurationSecs,
		PostedAt:     clip.PostedAt,
	}
}
