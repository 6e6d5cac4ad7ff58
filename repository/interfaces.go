// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/cranberriez/DiscordClipSaver-sub001/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// GuildRepository defines operations for dashboard guilds
type GuildRepository interface {
	ByGuildID(ctx context.Context, guildID string) (*models.Guild, error)
	Save(ctx context.Context, guild *models.Guild) error
	IsOwnedBy(ctx context.Context, guildID, userID string) (bool, error)
}

// ChannelRepository defines operations for guild channels
type ChannelRepository interface {
	Repository[models.Channel, models.ChannelFilter]
	ByGuildAndChannel(ctx context.Context, guildID, channelID string) (*models.Channel, error)
	ListByGuild(ctx context.Context, guildID string) ([]*models.Channel, error)
	UpsertFromDiscord(ctx context.Context, channels []*models.Channel) error
	SoftDeleteMissing(ctx context.Context, guildID string, keepChannelIDs []string) (int64, error)
	SetScanEnabled(ctx context.Context, guildID, channelID string, enabled bool) error
}

// ClipRepository defines read operations over worker-archived clips
type ClipRepository interface {
	Repository[models.Clip, models.ClipFilter]
	ListByChannel(ctx context.Context, guildID, channelID string, limit, offset int) ([]*models.Clip, error)
	CountByChannel(ctx context.Context, guildID, channelID string) (int64, error)
}

// ScanStatusRepository is the durable scan status store. The coordinator is
// the only writer of the QUEUED transition; the ingestion worker owns
// RUNNING, progress advances, and the terminal transitions.
type ScanStatusRepository interface {
	ByChannel(ctx context.Context, guildID, channelID string) (*models.ChannelScanStatus, error)
	ByChannels(ctx context.Context, guildID string, channelIDs []string) ([]*models.ChannelScanStatus, error)

	// ReserveQueued atomically moves the row to QUEUED (creating or
	// resurrecting it as needed) and clears error_message. Returns false
	// when the channel is already QUEUED or RUNNING; the check and the
	// write are a single conditional statement, so two racing callers
	// cannot both succeed.
	ReserveQueued(ctx context.Context, guildID, channelID string) (bool, error)

	// ReleaseReservation best-effort rolls a QUEUED reservation back after a
	// failed enqueue. prevStatus restores the pre-reservation state; nil
	// means the row did not exist before and is marked failed instead.
	ReleaseReservation(ctx context.Context, guildID, channelID string, prevStatus *models.ScanStatus, reason string) error

	// Worker-side transitions.
	MarkRunning(ctx context.Context, guildID, channelID string) (bool, error)
	RecordProgress(ctx context.Context, guildID, channelID string, progress models.ScanProgress) error
	Complete(ctx context.Context, guildID, channelID string) error
	Fail(ctx context.Context, guildID, channelID string, errorMessage string) error
	Cancel(ctx context.Context, guildID, channelID string) error

	// FailStuckQueued fails rows that have sat in QUEUED longer than maxAge
	// with no worker pickup. Used by the reconciliation sweep.
	FailStuckQueued(ctx context.Context, maxAge time.Duration, errorMessage string) (int64, error)
}
