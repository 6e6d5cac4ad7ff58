package services

import (
	"context"
	"encoding/json"
	"fmt"

	businessflow "github.com/cranberriez/DiscordClipSaver-sub001/business_flow"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisScanQueue publishes scan job descriptors onto a Redis stream consumed
// by the ingestion worker. Delivery is at-least-once; the worker dedupes on
// job id.
type RedisScanQueue struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisScanQueue creates a scan queue producer over the given stream.
// maxLen <= 0 disables stream trimming.
func NewRedisScanQueue(client *redis.Client, stream string, maxLen int64) businessflow.ScanQueue {
	return &RedisScanQueue{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Enqueue stamps a fresh job id into the descriptor and appends it to the
// stream. The returned message id is the Redis stream entry id.
func (q *RedisScanQueue) Enqueue(ctx context.Context, job *models.ScanJobDescriptor) (string, string, error) {
	job.JobID = uuid.New().String()

	payload, err := json.Marshal(job)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal scan job: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{
			"job_id":     job.JobID,
			"guild_id":   job.GuildID,
			"channel_id": job.ChannelID,
			"payload":    string(payload),
		},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}

	messageID, err := q.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", "", fmt.Errorf("failed to enqueue scan job: %w", err)
	}

	return job.JobID, messageID, nil
}
