// Package businessflow contains the core business logic and use cases for scan coordination workflows
package businessflow

import (
	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
)

// CursorPlan is the resolved fetch window for the next scan job. At most one
// of AfterMessageID/BeforeMessageID is set; both nil means a full-range
// first scan where the worker starts at the newest message and establishes
// the cursor window itself.
type CursorPlan struct {
	Direction       models.ScanDirection
	AfterMessageID  *string
	BeforeMessageID *string
}

// ResolveCursorPlan decides where the next scan job should read from, given
// the channel's stored cursors and the caller's direction flags.
//
// The flags form a priority chain rather than being mutually exclusive:
// historical wins over backfill, backfill over update, update over the
// default. Callers should set at most one, but conflicting combinations are
// resolved silently instead of rejected (matching the dashboard's historical
// behavior).
//
//   - historical: backward from the unbounded newest point, ignoring any
//     stored backward cursor. Re-establishes boundaries from scratch.
//   - backfill: backward from the oldest known message, extending the
//     scanned window further into history.
//   - update: forward from the newest known message, catching up to present.
//   - default: continue forward when any cursor exists, otherwise a
//     full-range first scan.
//
// A soft-deleted status row counts as unscanned: its stale cursors are
// ignored and the plan is a first scan.
func ResolveCursorPlan(existing *models.ChannelScanStatus, opts dto.ScanRequestOptions) CursorPlan {
	var forward, backward *string
	if existing != nil {
		forward, backward = existing.ScannedRange()
	}

	switch {
	case opts.IsHistorical:
		return CursorPlan{Direction: models.ScanDirectionBackward}

	case opts.IsBackfill:
		return CursorPlan{
			Direction:       models.ScanDirectionBackward,
			BeforeMessageID: backward,
		}

	case opts.IsUpdate:
		return CursorPlan{
			Direction:      models.ScanDirectionForward,
			AfterMessageID: forward,
		}

	default:
		if forward != nil || backward != nil {
			return CursorPlan{
				Direction:      models.ScanDirectionForward,
				AfterMessageID: forward,
			}
		}
		// First scan: no anchor, worker walks back from the newest message.
		return CursorPlan{Direction: models.ScanDirectionForward}
	}
}
