package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScanStatusRepositoryImpl implements ScanStatusRepository using GORM
type ScanStatusRepositoryImpl struct {
	*BaseRepository[models.ChannelScanStatus, models.ChannelScanStatusFilter]
}

// NewScanStatusRepository creates a new scan status repository instance
func NewScanStatusRepository(db *gorm.DB) ScanStatusRepository {
	return &ScanStatusRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ChannelScanStatus, models.ChannelScanStatusFilter](db),
	}
}

func (r *ScanStatusRepositoryImpl) ByChannel(ctx context.Context, guildID, channelID string) (*models.ChannelScanStatus, error) {
	db := r.getDB(ctx)

	var status models.ChannelScanStatus
	err := db.Where("guild_id = ? AND channel_id = ?", guildID, channelID).First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find scan status for channel %s: %w", channelID, err)
	}

	return &status, nil
}

// ByChannels loads scan status rows for many channels in one query so bulk
// dispatch and dashboard listings avoid N+1 reads. Channels with no row are
// simply absent from the result.
func (r *ScanStatusRepositoryImpl) ByChannels(ctx context.Context, guildID string, channelIDs []string) ([]*models.ChannelScanStatus, error) {
	if len(channelIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var statuses []*models.ChannelScanStatus
	err := db.Where("guild_id = ? AND channel_id IN ?", guildID, channelIDs).Find(&statuses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load scan statuses for guild %s: %w", guildID, err)
	}

	return statuses, nil
}

// ReserveQueued is the single-flight gate. It is one INSERT ... ON CONFLICT
// DO UPDATE ... WHERE statement: the conditional update only fires when the
// existing row is not QUEUED/RUNNING (or is soft-deleted, which counts as
// unscanned). Zero rows affected means another dispatch owns the channel.
// Only status, error_message, deleted_at and updated_at are touched;
// counters and cursors survive the reservation untouched.
func (r *ScanStatusRepositoryImpl) ReserveQueued(ctx context.Context, guildID, channelID string) (bool, error) {
	db := r.getDB(ctx)

	now := utils.UTCNow()
	row := models.ChannelScanStatus{
		GuildID:   guildID,
		ChannelID: channelID,
		Status:    models.ScanStatusQueued,
		CreatedAt: now,
	}

	res := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}, {Name: "channel_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":        models.ScanStatusQueued,
			"error_message": nil,
			"deleted_at":    nil,
			"updated_at":    now,
		}),
		Where: clause.Where{
			Exprs: []clause.Expression{
				clause.Expr{
					SQL: "channel_scan_statuses.deleted_at IS NOT NULL OR channel_scan_statuses.status NOT IN ?",
					Vars: []any{
						[]string{string(models.ScanStatusQueued), string(models.ScanStatusRunning)},
					},
				},
			},
		},
	}).Create(&row)

	if res.Error != nil {
		return false, fmt.Errorf("failed to reserve scan for channel %s: %w", channelID, res.Error)
	}

	return res.RowsAffected > 0, nil
}

// ReleaseReservation undoes a QUEUED reservation after a failed enqueue. The
// revert is best-effort and deliberately conditional on the row still being
// QUEUED so a worker that somehow picked the job up is never clobbered.
func (r *ScanStatusRepositoryImpl) ReleaseReservation(ctx context.Context, guildID, channelID string, prevStatus *models.ScanStatus, reason string) error {
	db := r.getDB(ctx)

	updates := map[string]any{
		"updated_at": utils.UTCNow(),
	}
	if prevStatus != nil && prevStatus.Valid() {
		updates["status"] = *prevStatus
	} else {
		updates["status"] = models.ScanStatusFailed
		updates["error_message"] = reason
	}

	err := db.Model(&models.ChannelScanStatus{}).
		Where("guild_id = ? AND channel_id = ? AND status = ?", guildID, channelID, models.ScanStatusQueued).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to release scan reservation for channel %s: %w", channelID, err)
	}

	return nil
}

// MarkRunning transitions QUEUED -> RUNNING. Returns false when the row is
// not in QUEUED, which tells a worker the reservation was reconciled away.
func (r *ScanStatusRepositoryImpl) MarkRunning(ctx context.Context, guildID, channelID string) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.ChannelScanStatus{}).
		Where("guild_id = ? AND channel_id = ? AND status = ?", guildID, channelID, models.ScanStatusQueued).
		Updates(map[string]any{
			"status":     models.ScanStatusRunning,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark scan running for channel %s: %w", channelID, res.Error)
	}

	return res.RowsAffected > 0, nil
}

// RecordProgress adds counter deltas and widens the cursor window. The SQL
// keeps both counters monotonic and only moves forward_message_id toward
// newer snowflakes and backward_message_id toward older ones, so replayed
// at-least-once batches cannot shrink the scanned range.
func (r *ScanStatusRepositoryImpl) RecordProgress(ctx context.Context, guildID, channelID string, progress models.ScanProgress) error {
	db := r.getDB(ctx)

	updates := map[string]any{
		"updated_at": utils.UTCNow(),
	}
	if progress.MessagesScanned > 0 {
		updates["total_messages_scanned"] = gorm.Expr("total_messages_scanned + ?", progress.MessagesScanned)
	}
	if progress.ClipMessagesFound > 0 {
		updates["message_count"] = gorm.Expr("message_count + ?", progress.ClipMessagesFound)
	}
	if progress.ForwardMessageID != nil {
		updates["forward_message_id"] = gorm.Expr(
			"CASE WHEN forward_message_id IS NULL OR CAST(? AS numeric) > CAST(forward_message_id AS numeric) THEN ? ELSE forward_message_id END",
			*progress.ForwardMessageID, *progress.ForwardMessageID,
		)
	}
	if progress.BackwardMessageID != nil {
		updates["backward_message_id"] = gorm.Expr(
			"CASE WHEN backward_message_id IS NULL OR CAST(? AS numeric) < CAST(backward_message_id AS numeric) THEN ? ELSE backward_message_id END",
			*progress.BackwardMessageID, *progress.BackwardMessageID,
		)
	}

	err := db.Model(&models.ChannelScanStatus{}).
		Where("guild_id = ? AND channel_id = ? AND status = ?", guildID, channelID, models.ScanStatusRunning).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to record scan progress for channel %s: %w", channelID, err)
	}

	return nil
}

func (r *ScanStatusRepositoryImpl) Complete(ctx context.Context, guildID, channelID string) error {
	return r.finishScan(ctx, guildID, channelID, models.ScanStatusSucceeded, nil)
}

func (r *ScanStatusRepositoryImpl) Fail(ctx context.Context, guildID, channelID string, errorMessage string) error {
	return r.finishScan(ctx, guildID, channelID, models.ScanStatusFailed, &errorMessage)
}

func (r *ScanStatusRepositoryImpl) Cancel(ctx context.Context, guildID, channelID string) error {
	return r.finishScan(ctx, guildID, channelID, models.ScanStatusCancelled, nil)
}

func (r *ScanStatusRepositoryImpl) finishScan(ctx context.Context, guildID, channelID string, status models.ScanStatus, errorMessage *string) error {
	db := r.getDB(ctx)

	updates := map[string]any{
		"status":     status,
		"updated_at": utils.UTCNow(),
	}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}

	err := db.Model(&models.ChannelScanStatus{}).
		Where("guild_id = ? AND channel_id = ? AND status IN ?", guildID, channelID,
			[]string{string(models.ScanStatusQueued), string(models.ScanStatusRunning)}).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to finish scan for channel %s: %w", channelID, err)
	}

	return nil
}

// FailStuckQueued sweeps rows that were reserved but never picked up. A crash
// between the reservation write and the queue write leaves exactly this
// shape behind, so the sweep is what keeps those channels dispatchable.
func (r *ScanStatusRepositoryImpl) FailStuckQueued(ctx context.Context, maxAge time.Duration, errorMessage string) (int64, error) {
	db := r.getDB(ctx)

	cutoff := utils.UTCNow().Add(-maxAge)
	res := db.Model(&models.ChannelScanStatus{}).
		Where("status = ? AND deleted_at IS NULL AND COALESCE(updated_at, created_at) < ?", models.ScanStatusQueued, cutoff).
		Updates(map[string]any{
			"status":        models.ScanStatusFailed,
			"error_message": errorMessage,
			"updated_at":    utils.UTCNow(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep stuck queued scans: %w", res.Error)
	}

	return res.RowsAffected, nil
}
