// Package businessflow contains the core business logic and use cases for scan coordination workflows
package businessflow

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/repository"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipsaver_scan_dispatches_total",
			Help: "Scan dispatch attempts partitioned by outcome",
		},
		[]string{"outcome"},
	)

	scanQueueFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipsaver_scan_queue_failures_total",
			Help: "Enqueue failures that happened after the channel was reserved",
		},
	)
)

// ScanQueue is the minimal producer interface over the job queue. Delivery
// to the ingestion worker is at-least-once; the returned message id is the
// queue's own identifier for the enqueued entry, used for tracing.
type ScanQueue interface {
	Enqueue(ctx context.Context, job *models.ScanJobDescriptor) (jobID, messageID string, err error)
}

// ScanFlow handles scan dispatch business logic
type ScanFlow interface {
	StartChannelScan(ctx context.Context, req *dto.StartChannelScanRequest, metadata *ClientMetadata) (*dto.StartChannelScanResponse, error)
	StartMultipleChannelScans(ctx context.Context, req *dto.StartMultipleChannelScansRequest, metadata *ClientMetadata) (*dto.StartMultipleChannelScansResponse, error)
}

// ScanFlowImpl implements the scan dispatch business flow
type ScanFlowImpl struct {
	guildRepo   repository.GuildRepository
	channelRepo repository.ChannelRepository
	statusRepo  repository.ScanStatusRepository
	queue       ScanQueue
}

// NewScanFlow creates a new scan flow instance
func NewScanFlow(
	guildRepo repository.GuildRepository,
	channelRepo repository.ChannelRepository,
	statusRepo repository.ScanStatusRepository,
	queue ScanQueue,
) ScanFlow {
	return &ScanFlowImpl{
		guildRepo:   guildRepo,
		channelRepo: channelRepo,
		statusRepo:  statusRepo,
		queue:       queue,
	}
}

// StartChannelScan dispatches one scan job for one channel. Preconditions
// are checked in order (authorization, channel existence, scan enablement,
// single-flight) and each maps to its own sentinel error so callers can
// react per failure mode. On the happy path exactly one status-row write and
// one queue write happen; precondition failures leave no side effects.
func (s *ScanFlowImpl) StartChannelScan(ctx context.Context, req *dto.StartChannelScanRequest, metadata *ClientMetadata) (*dto.StartChannelScanResponse, error) {
	rescan, err := models.ParseRescanPolicy(stringValue(req.Options.Rescan))
	if err != nil {
		scanDispatchesTotal.WithLabelValues("invalid_request").Inc()
		return nil, NewBusinessError("INVALID_RESCAN_MODE", "Invalid rescan mode", ErrInvalidRescanMode)
	}

	owned, err := s.guildRepo.IsOwnedBy(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("OWNERSHIP_CHECK_FAILED", "Failed to check guild ownership", err)
	}
	if !owned {
		scanDispatchesTotal.WithLabelValues("unauthorized").Inc()
		return nil, NewBusinessError("UNAUTHORIZED", "User does not own this guild", ErrUnauthorized)
	}

	channel, err := s.channelRepo.ByGuildAndChannel(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_LOOKUP_FAILED", "Failed to lookup channel", err)
	}
	if channel == nil || channel.DeletedAt != nil {
		scanDispatchesTotal.WithLabelValues("channel_not_found").Inc()
		return nil, NewBusinessError("CHANNEL_NOT_FOUND", "Channel not found", ErrChannelNotFound)
	}
	if !channel.IsScannable() {
		scanDispatchesTotal.WithLabelValues("scanning_disabled").Inc()
		return nil, NewBusinessError("SCANNING_DISABLED", "Message scanning is disabled for this channel", ErrScanningDisabled)
	}

	existing, err := s.statusRepo.ByChannel(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, NewBusinessError("SCAN_STATUS_LOOKUP_FAILED", "Failed to load scan status", err)
	}

	plan := ResolveCursorPlan(existing, req.Options)

	// Reservation is the single-flight gate: a single atomic conditional
	// write, not a read followed by a write. Losing the race surfaces here
	// as reserved=false regardless of what the read above observed.
	reserved, err := s.statusRepo.ReserveQueued(ctx, req.GuildID, req.ChannelID)
	if err != nil {
		return nil, NewBusinessError("SCAN_RESERVATION_FAILED", "Failed to reserve channel for scanning", err)
	}
	if !reserved {
		scanDispatchesTotal.WithLabelValues("already_running").Inc()
		return nil, NewBusinessError("SCAN_ALREADY_RUNNING", "A scan is already queued or running for this channel", ErrScanAlreadyRunning)
	}

	job := s.buildJobDescriptor(req, plan, rescan)

	jobID, messageID, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		// The reservation is already durable; roll it back so the channel
		// does not stay stuck in QUEUED with no job behind it. The revert is
		// best-effort and the reconciliation sweep covers the remainder.
		s.releaseAfterEnqueueFailure(ctx, req.GuildID, req.ChannelID, existing, err)
		scanQueueFailuresTotal.Inc()
		scanDispatchesTotal.WithLabelValues("queue_failed").Inc()
		return nil, NewBusinessError("QUEUE_DISPATCH_FAILED", "Scan was reserved but could not be enqueued", ErrQueueDispatchFailed)
	}

	scanDispatchesTotal.WithLabelValues("dispatched").Inc()

	return &dto.StartChannelScanResponse{
		Message:   "Scan dispatched successfully",
		JobID:     jobID,
		MessageID: messageID,
		Direction: string(job.Direction),
	}, nil
}

// StartMultipleChannelScans fans one scan request out over many channels.
// Channels already owned by an active job are skipped using one bulk status
// read; the rest are dispatched concurrently and each channel's outcome is
// reported independently, so one failure never aborts its siblings.
func (s *ScanFlowImpl) StartMultipleChannelScans(ctx context.Context, req *dto.StartMultipleChannelScansRequest, metadata *ClientMetadata) (*dto.StartMultipleChannelScansResponse, error) {
	if len(req.ChannelIDs) == 0 {
		return nil, NewBusinessError("NO_CHANNELS_REQUESTED", "At least one channel id is required", ErrNoChannelsRequested)
	}

	// Pre-screen with a single bulk read. This only avoids pointless
	// per-channel work; the atomic reservation inside StartChannelScan is
	// what actually guarantees single-flight for channels that race past
	// this snapshot.
	active := make(map[string]bool, len(req.ChannelIDs))
	statuses, err := s.statusRepo.ByChannels(ctx, req.GuildID, req.ChannelIDs)
	if err != nil {
		return nil, NewBusinessError("SCAN_STATUS_LOOKUP_FAILED", "Failed to load scan statuses", err)
	}
	for _, status := range statuses {
		if status.DeletedAt == nil && status.Status.IsActive() {
			active[status.ChannelID] = true
		}
	}

	results := make([]dto.ChannelScanOutcome, len(req.ChannelIDs))

	var wg sync.WaitGroup
	for i, channelID := range req.ChannelIDs {
		if active[channelID] {
			results[i] = dto.ChannelScanOutcome{
				ChannelID: channelID,
				ErrorCode: "SCAN_ALREADY_RUNNING",
			}
			continue
		}

		wg.Add(1)
		go func(i int, channelID string) {
			defer wg.Done()

			resp, err := s.StartChannelScan(ctx, &dto.StartChannelScanRequest{
				GuildID:   req.GuildID,
				ChannelID: channelID,
				UserID:    req.UserID,
				Options:   req.Options,
			}, metadata)
			if err != nil {
				results[i] = dto.ChannelScanOutcome{
					ChannelID: channelID,
					ErrorCode: errorCode(err),
				}
				return
			}

			results[i] = dto.ChannelScanOutcome{
				ChannelID: channelID,
				Success:   true,
				JobID:     resp.JobID,
				MessageID: resp.MessageID,
			}
		}(i, channelID)
	}
	wg.Wait()

	successCount := 0
	for _, r := range results {
		if r.Success {
			successCount++
		}
	}

	return &dto.StartMultipleChannelScansResponse{
		Message:      fmt.Sprintf("Dispatched %d of %d channel scans", successCount, len(results)),
		SuccessCount: successCount,
		FailedCount:  len(results) - successCount,
		Results:      results,
	}, nil
}

// buildJobDescriptor assembles the queue payload from the cursor plan and
// the caller's options, applying defaults and clamping the batch limit.
func (s *ScanFlowImpl) buildJobDescriptor(req *dto.StartChannelScanRequest, plan CursorPlan, rescan models.RescanPolicy) *models.ScanJobDescriptor {
	limit := utils.DefaultScanLimit
	if req.Options.Limit != nil && *req.Options.Limit > 0 {
		limit = *req.Options.Limit
	}
	if limit > utils.MaxScanLimit {
		limit = utils.MaxScanLimit
	}

	autoContinue := true
	if req.Options.AutoContinue != nil {
		autoContinue = *req.Options.AutoContinue
	}

	return &models.ScanJobDescriptor{
		GuildID:         req.GuildID,
		ChannelID:       req.ChannelID,
		Direction:       plan.Direction,
		AfterMessageID:  plan.AfterMessageID,
		BeforeMessageID: plan.BeforeMessageID,
		Limit:           limit,
		AutoContinue:    autoContinue,
		RescanPolicy:    rescan,
	}
}

func (s *ScanFlowImpl) releaseAfterEnqueueFailure(ctx context.Context, guildID, channelID string, existing *models.ChannelScanStatus, cause error) {
	var prevStatus *models.ScanStatus
	if existing != nil && existing.DeletedAt == nil && existing.Status.Valid() {
		prev := existing.Status
		prevStatus = &prev
	}

	reason := fmt.Sprintf("enqueue failed: %v", cause)
	if err := s.statusRepo.ReleaseReservation(ctx, guildID, channelID, prevStatus, reason); err != nil {
		log.Printf("scan flow: failed to release reservation for channel %s after enqueue failure: %v", channelID, err)
	}
}

// errorCode maps flow errors onto stable per-channel outcome codes
func errorCode(err error) string {
	switch {
	case IsScanAlreadyRunning(err):
		return "SCAN_ALREADY_RUNNING"
	case IsChannelNotFound(err):
		return "CHANNEL_NOT_FOUND"
	case IsScanningDisabled(err):
		return "SCANNING_DISABLED"
	case IsUnauthorized(err):
		return "UNAUTHORIZED"
	case IsQueueDispatchFailed(err):
		return "QUEUE_DISPATCH_FAILED"
	case IsInvalidRescanMode(err):
		return "INVALID_RESCAN_MODE"
	default:
		return "SCAN_DISPATCH_FAILED"
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
