package models

import (
	"fmt"
)

// ScanDirection is the direction a scan job walks the channel history
type ScanDirection string

const (
	// ScanDirectionForward walks from the anchor toward newer messages
	ScanDirectionForward ScanDirection = "forward"
	// ScanDirectionBackward walks from the anchor toward older messages
	ScanDirectionBackward ScanDirection = "backward"
)

// Valid checks if the direction is valid
func (d ScanDirection) Valid() bool {
	return d == ScanDirectionForward || d == ScanDirectionBackward
}

// RescanPolicy tells the worker what to do with messages it has already seen.
// The coordinator forwards it unmodified; interpretation belongs to the worker.
type RescanPolicy string

const (
	// RescanStop halts the walk at the first already-scanned message (cheapest)
	RescanStop RescanPolicy = "stop"
	// RescanContinue skips already-scanned messages but keeps walking so
	// boundaries can be established or repaired
	RescanContinue RescanPolicy = "continue"
	// RescanUpdate reprocesses every message in range even if previously
	// scanned. Expensive; existing thumbnails are not regenerated (worker-side
	// dedup).
	RescanUpdate RescanPolicy = "update"
)

// Valid checks if the policy is one of the allowed values
func (p RescanPolicy) Valid() bool {
	switch p {
	case RescanStop, RescanContinue, RescanUpdate:
		return true
	default:
		return false
	}
}

// ParseRescanPolicy converts a request-layer string into a RescanPolicy,
// defaulting to stop when empty.
func ParseRescanPolicy(s string) (RescanPolicy, error) {
	if s == "" {
		return RescanStop, nil
	}
	p := RescanPolicy(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid rescan policy: %q", s)
	}
	return p, nil
}

// ScanJobDescriptor is the ephemeral queue payload describing one unit of
// scan work. The ingestion worker consumes it with at-least-once semantics,
// so the descriptor must be safe to apply more than once.
type ScanJobDescriptor struct {
	JobID           string        `json:"job_id"`
	GuildID         string        `json:"guild_id"`
	ChannelID       string        `json:"channel_id"`
	Direction       ScanDirection `json:"direction"`
	AfterMessageID  *string       `json:"after_message_id,omitempty"`
	BeforeMessageID *string       `json:"before_message_id,omitempty"`
	Limit           int           `json:"limit"`
	AutoContinue    bool          `json:"auto_continue"`
	RescanPolicy    RescanPolicy  `json:"rescan_policy"`
}
