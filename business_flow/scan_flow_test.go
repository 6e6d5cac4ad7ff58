package businessflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
)

const (
	testGuildID   = "190550585754779648"
	testChannelID = "200000000000000001"
	testUserID    = "300000000000000001"
)

// fakeGuildRepo answers ownership checks from a fixed owner map
type fakeGuildRepo struct {
	owners map[string]string // guildID -> ownerUserID
	err    error
}

func (f *fakeGuildRepo) ByGuildID(ctx context.Context, guildID string) (*models.Guild, error) {
	return nil, nil
}

func (f *fakeGuildRepo) Save(ctx context.Context, guild *models.Guild) error {
	return nil
}

func (f *fakeGuildRepo) IsOwnedBy(ctx context.Context, guildID, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.owners[guildID] == userID, nil
}

// fakeChannelRepo serves channels keyed by guildID/channelID and records
// sync-side mutations for assertion
type fakeChannelRepo struct {
	channels map[string]*models.Channel
	err      error

	upserted     []*models.Channel
	keepIDs      []string
	removedCount int64
	scanToggles  map[string]bool
}

func channelKey(guildID, channelID string) string {
	return guildID + "/" + channelID
}

func (f *fakeChannelRepo) ByGuildAndChannel(ctx context.Context, guildID, channelID string) (*models.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.channels[channelKey(guildID, channelID)], nil
}

func (f *fakeChannelRepo) ByID(ctx context.Context, id uint) (*models.Channel, error) {
	return nil, nil
}

func (f *fakeChannelRepo) ByFilter(ctx context.Context, filter models.ChannelFilter, orderBy string, limit, offset int) ([]*models.Channel, error) {
	return nil, nil
}

func (f *fakeChannelRepo) Save(ctx context.Context, entity *models.Channel) error {
	return nil
}

func (f *fakeChannelRepo) SaveBatch(ctx context.Context, entities []*models.Channel) error {
	return nil
}

func (f *fakeChannelRepo) Count(ctx context.Context, filter models.ChannelFilter) (int64, error) {
	return 0, nil
}

func (f *fakeChannelRepo) ListByGuild(ctx context.Context, guildID string) ([]*models.Channel, error) {
	var out []*models.Channel
	for _, ch := range f.channels {
		if ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeChannelRepo) UpsertFromDiscord(ctx context.Context, channels []*models.Channel) error {
	f.upserted = append(f.upserted, channels...)
	for _, ch := range channels {
		f.channels[channelKey(ch.GuildID, ch.ChannelID)] = ch
	}
	return nil
}

func (f *fakeChannelRepo) SoftDeleteMissing(ctx context.Context, guildID string, keepChannelIDs []string) (int64, error) {
	f.keepIDs = keepChannelIDs
	return f.removedCount, nil
}

func (f *fakeChannelRepo) SetScanEnabled(ctx context.Context, guildID, channelID string, enabled bool) error {
	if f.scanToggles == nil {
		f.scanToggles = make(map[string]bool)
	}
	f.scanToggles[channelKey(guildID, channelID)] = enabled
	if ch, ok := f.channels[channelKey(guildID, channelID)]; ok {
		ch.MessageScanEnabled = utils.ToPtr(enabled)
	}
	return nil
}

// fakeStatusRepo implements the reservation contract with a mutex standing in
// for the database's row-level atomicity.
type fakeStatusRepo struct {
	mu       sync.Mutex
	rows     map[string]*models.ChannelScanStatus
	releases []string

	reserveErr error
	lookupErr  error
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{rows: make(map[string]*models.ChannelScanStatus)}
}

func (f *fakeStatusRepo) ByChannel(ctx context.Context, guildID, channelID string) (*models.ChannelScanStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	row, ok := f.rows[channelKey(guildID, channelID)]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeStatusRepo) ByChannels(ctx context.Context, guildID string, channelIDs []string) ([]*models.ChannelScanStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var out []*models.ChannelScanStatus
	for _, id := range channelIDs {
		if row, ok := f.rows[channelKey(guildID, id)]; ok {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStatusRepo) ReserveQueued(ctx context.Context, guildID, channelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return false, f.reserveErr
	}

	key := channelKey(guildID, channelID)
	row, ok := f.rows[key]
	if ok && row.DeletedAt == nil && row.Status.IsActive() {
		return false, nil
	}

	if !ok {
		row = &models.ChannelScanStatus{GuildID: guildID, ChannelID: channelID}
		f.rows[key] = row
	}
	row.Status = models.ScanStatusQueued
	row.ErrorMessage = nil
	row.DeletedAt = nil
	return true, nil
}

func (f *fakeStatusRepo) ReleaseReservation(ctx context.Context, guildID, channelID string, prevStatus *models.ScanStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, channelKey(guildID, channelID))

	row, ok := f.rows[channelKey(guildID, channelID)]
	if !ok {
		return nil
	}
	if prevStatus != nil {
		row.Status = *prevStatus
	} else {
		row.Status = models.ScanStatusFailed
		row.ErrorMessage = &reason
	}
	return nil
}

func (f *fakeStatusRepo) MarkRunning(ctx context.Context, guildID, channelID string) (bool, error) {
	return false, nil
}

func (f *fakeStatusRepo) RecordProgress(ctx context.Context, guildID, channelID string, progress models.ScanProgress) error {
	return nil
}

func (f *fakeStatusRepo) Complete(ctx context.Context, guildID, channelID string) error {
	return nil
}

func (f *fakeStatusRepo) Fail(ctx context.Context, guildID, channelID string, errorMessage string) error {
	return nil
}

func (f *fakeStatusRepo) Cancel(ctx context.Context, guildID, channelID string) error {
	return nil
}

func (f *fakeStatusRepo) FailStuckQueued(ctx context.Context, maxAge time.Duration, errorMessage string) (int64, error) {
	return 0, nil
}

// fakeQueue records enqueued jobs and can be told to fail
type fakeQueue struct {
	mu   sync.Mutex
	jobs []*models.ScanJobDescriptor
	err  error
	seq  int
}

func (f *fakeQueue) Enqueue(ctx context.Context, job *models.ScanJobDescriptor) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	f.seq++
	job.JobID = fmt.Sprintf("job-%d", f.seq)
	f.jobs = append(f.jobs, job)
	return job.JobID, fmt.Sprintf("stream-%d", f.seq), nil
}

func (f *fakeQueue) lastJob() *models.ScanJobDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		return nil
	}
	return f.jobs[len(f.jobs)-1]
}

type scanFlowFixture struct {
	flow     ScanFlow
	guilds   *fakeGuildRepo
	channels *fakeChannelRepo
	statuses *fakeStatusRepo
	queue    *fakeQueue
}

func newScanFlowFixture() *scanFlowFixture {
	guilds := &fakeGuildRepo{owners: map[string]string{testGuildID: testUserID}}
	channels := &fakeChannelRepo{channels: map[string]*models.Channel{
		channelKey(testGuildID, testChannelID): {
			GuildID:            testGuildID,
			ChannelID:          testChannelID,
			Name:               "clips",
			MessageScanEnabled: utils.ToPtr(true),
		},
	}}
	statuses := newFakeStatusRepo()
	queue := &fakeQueue{}

	return &scanFlowFixture{
		flow:     NewScanFlow(guilds, channels, statuses, queue),
		guilds:   guilds,
		channels: channels,
		statuses: statuses,
		queue:    queue,
	}
}

func scanRequest(opts dto.ScanRequestOptions) *dto.StartChannelScanRequest {
	return &dto.StartChannelScanRequest{
		GuildID:   testGuildID,
		ChannelID: testChannelID,
		UserID:    testUserID,
		Options:   opts,
	}
}

func testMetadata() *ClientMetadata {
	return &ClientMetadata{IPAddress: "127.0.0.1", UserAgent: "test", RequestID: "req-1"}
}

func TestStartChannelScan(t *testing.T) {
	t.Run("dispatches a first scan with defaults", func(t *testing.T) {
		f := newScanFlowFixture()

		resp, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.NotEmpty(t, resp.JobID)
		assert.NotEmpty(t, resp.MessageID)
		assert.Equal(t, string(models.ScanDirectionForward), resp.Direction)

		job := f.queue.lastJob()
		require.NotNil(t, job)
		assert.Equal(t, testGuildID, job.GuildID)
		assert.Equal(t, testChannelID, job.ChannelID)
		assert.Equal(t, utils.DefaultScanLimit, job.Limit)
		assert.True(t, job.AutoContinue)
		assert.Equal(t, models.RescanStop, job.RescanPolicy)
		assert.Nil(t, job.AfterMessageID)
		assert.Nil(t, job.BeforeMessageID)

		status, err := f.statuses.ByChannel(context.Background(), testGuildID, testChannelID)
		require.NoError(t, err)
		require.NotNil(t, status)
		assert.Equal(t, models.ScanStatusQueued, status.Status)
		assert.Nil(t, status.ErrorMessage)
	})

	t.Run("rejects an invalid rescan mode before any lookup", func(t *testing.T) {
		f := newScanFlowFixture()

		_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{
			Rescan: utils.ToPtr("everything"),
		}), testMetadata())
		assert.True(t, IsInvalidRescanMode(err))
		assert.Empty(t, f.queue.jobs)
	})

	t.Run("rejects a caller who does not own the guild", func(t *testing.T) {
		f := newScanFlowFixture()

		req := scanRequest(dto.ScanRequestOptions{})
		req.UserID = "999999999999999999"
		_, err := f.flow.StartChannelScan(context.Background(), req, testMetadata())
		assert.True(t, IsUnauthorized(err))
		assert.Empty(t, f.queue.jobs)
	})

	t.Run("rejects an unknown channel", func(t *testing.T) {
		f := newScanFlowFixture()

		req := scanRequest(dto.ScanRequestOptions{})
		req.ChannelID = "200000000000000999"
		_, err := f.flow.StartChannelScan(context.Background(), req, testMetadata())
		assert.True(t, IsChannelNotFound(err))
	})

	t.Run("treats a soft-deleted channel as not found", func(t *testing.T) {
		f := newScanFlowFixture()
		f.channels.channels[channelKey(testGuildID, testChannelID)].DeletedAt = utils.ToPtr(time.Now().UTC())

		_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
		assert.True(t, IsChannelNotFound(err))
	})

	t.Run("rejects a channel with scanning disabled", func(t *testing.T) {
		f := newScanFlowFixture()
		f.channels.channels[channelKey(testGuildID, testChannelID)].MessageScanEnabled = utils.ToPtr(false)

		_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
		assert.True(t, IsScanningDisabled(err))
	})

	t.Run("rejects while a scan is queued or running", func(t *testing.T) {
		for _, status := range []models.ScanStatus{models.ScanStatusQueued, models.ScanStatusRunning} {
			f := newScanFlowFixture()
			f.statuses.rows[channelKey(testGuildID, testChannelID)] = &models.ChannelScanStatus{
				GuildID:   testGuildID,
				ChannelID: testChannelID,
				Status:    status,
			}

			_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
			assert.True(t, IsScanAlreadyRunning(err), "status %s should block dispatch", status)
			assert.Empty(t, f.queue.jobs)
		}
	})

	t.Run("redispatches over a terminal status and clears its error", func(t *testing.T) {
		f := newScanFlowFixture()
		f.statuses.rows[channelKey(testGuildID, testChannelID)] = &models.ChannelScanStatus{
			GuildID:      testGuildID,
			ChannelID:    testChannelID,
			Status:       models.ScanStatusFailed,
			ErrorMessage: utils.ToPtr("discord returned 503"),
		}

		_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
		require.NoError(t, err)

		status, err := f.statuses.ByChannel(context.Background(), testGuildID, testChannelID)
		require.NoError(t, err)
		assert.Equal(t, models.ScanStatusQueued, status.Status)
		assert.Nil(t, status.ErrorMessage)
	})

	t.Run("continues forward from a stored cursor", func(t *testing.T) {
		f := newScanFlowFixture()
		forward := "1290000000000000000"
		f.statuses.rows[channelKey(testGuildID, testChannelID)] = &models.ChannelScanStatus{
			GuildID:          testGuildID,
			ChannelID:        testChannelID,
			Status:           models.ScanStatusSucceeded,
			ForwardMessageID: &forward,
		}

		resp, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
		require.NoError(t, err)
		assert.Equal(t, string(models.ScanDirectionForward), resp.Direction)

		job := f.queue.lastJob()
		require.NotNil(t, job)
		require.NotNil(t, job.AfterMessageID)
		assert.Equal(t, forward, *job.AfterMessageID)
	})

	t.Run("historical scan goes backward with no anchor", func(t *testing.T) {
		f := newScanFlowFixture()
		forward := "1290000000000000000"
		backward := "1280000000000000000"
		f.statuses.rows[channelKey(testGuildID, testChannelID)] = &models.ChannelScanStatus{
			GuildID:           testGuildID,
			ChannelID:         testChannelID,
			Status:            models.ScanStatusSucceeded,
			ForwardMessageID:  &forward,
			BackwardMessageID: &backward,
		}

		resp, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{
			IsHistorical: true,
		}), testMetadata())
		require.NoError(t, err)
		assert.Equal(t, string(models.ScanDirectionBackward), resp.Direction)

		job := f.queue.lastJob()
		require.NotNil(t, job)
		assert.Nil(t, job.AfterMessageID)
		assert.Nil(t, job.BeforeMessageID)
	})

	t.Run("clamps and defaults the batch limit", func(t *testing.T) {
		tests := []struct {
			name     string
			limit    *int
			expected int
		}{
			{"nil uses the default", nil, utils.DefaultScanLimit},
			{"explicit value passes through", utils.ToPtr(500), 500},
			{"oversized value is clamped", utils.ToPtr(50000), utils.MaxScanLimit},
			{"zero falls back to the default", utils.ToPtr(0), utils.DefaultScanLimit},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newScanFlowFixture()

				_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{
					Limit: tt.limit,
				}), testMetadata())
				require.NoError(t, err)
				assert.Equal(t, tt.expected, f.queue.lastJob().Limit)
			})
		}
	})

	t.Run("auto continue can be switched off", func(t *testing.T) {
		f := newScanFlowFixture()

		_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{
			AutoContinue: utils.ToPtr(false),
		}), testMetadata())
		require.NoError(t, err)
		assert.False(t, f.queue.lastJob().AutoContinue)
	})

	t.Run("rolls the reservation back when the enqueue fails", func(t *testing.T) {
		f := newScanFlowFixture()
		f.statuses.rows[channelKey(testGuildID, testChannelID)] = &models.ChannelScanStatus{
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			Status:    models.ScanStatusSucceeded,
		}
		f.queue.err = errors.New("stream unavailable")

		_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
		assert.True(t, IsQueueDispatchFailed(err))

		require.Len(t, f.statuses.releases, 1)
		status, lookupErr := f.statuses.ByChannel(context.Background(), testGuildID, testChannelID)
		require.NoError(t, lookupErr)
		assert.Equal(t, models.ScanStatusSucceeded, status.Status, "prior status should be restored")
	})

	t.Run("marks a fresh row failed when the enqueue fails with no prior status", func(t *testing.T) {
		f := newScanFlowFixture()
		f.queue.err = errors.New("stream unavailable")

		_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
		assert.True(t, IsQueueDispatchFailed(err))

		status, lookupErr := f.statuses.ByChannel(context.Background(), testGuildID, testChannelID)
		require.NoError(t, lookupErr)
		assert.Equal(t, models.ScanStatusFailed, status.Status)
		require.NotNil(t, status.ErrorMessage)
		assert.Contains(t, *status.ErrorMessage, "enqueue failed")
	})
}

// Concurrent dispatches for the same channel must produce exactly one job.
func TestStartChannelScanSingleFlight(t *testing.T) {
	f := newScanFlowFixture()

	const attempts = 20
	var wg sync.WaitGroup
	var successes, alreadyRunning int64
	var mu sync.Mutex

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.flow.StartChannelScan(context.Background(), scanRequest(dto.ScanRequestOptions{}), testMetadata())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case IsScanAlreadyRunning(err):
				alreadyRunning++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes)
	assert.Equal(t, int64(attempts-1), alreadyRunning)
	assert.Len(t, f.queue.jobs, 1)
}

func TestStartMultipleChannelScans(t *testing.T) {
	addChannel := func(f *scanFlowFixture, channelID string, scannable bool) {
		f.channels.channels[channelKey(testGuildID, channelID)] = &models.Channel{
			GuildID:            testGuildID,
			ChannelID:          channelID,
			Name:               "clips-" + channelID,
			MessageScanEnabled: utils.ToPtr(scannable),
		}
	}

	t.Run("rejects an empty channel list", func(t *testing.T) {
		f := newScanFlowFixture()

		_, err := f.flow.StartMultipleChannelScans(context.Background(), &dto.StartMultipleChannelScansRequest{
			GuildID: testGuildID,
			UserID:  testUserID,
		}, testMetadata())
		assert.True(t, IsNoChannelsRequested(err))
	})

	t.Run("dispatches all channels independently", func(t *testing.T) {
		f := newScanFlowFixture()
		addChannel(f, "200000000000000002", true)
		addChannel(f, "200000000000000003", true)

		resp, err := f.flow.StartMultipleChannelScans(context.Background(), &dto.StartMultipleChannelScansRequest{
			GuildID:    testGuildID,
			UserID:     testUserID,
			ChannelIDs: []string{testChannelID, "200000000000000002", "200000000000000003"},
		}, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, 3, resp.SuccessCount)
		assert.Equal(t, 0, resp.FailedCount)
		require.Len(t, resp.Results, 3)
		for i, r := range resp.Results {
			assert.True(t, r.Success, "result %d", i)
			assert.NotEmpty(t, r.JobID)
		}
		assert.Len(t, f.queue.jobs, 3)
	})

	t.Run("one bad channel does not abort its siblings", func(t *testing.T) {
		f := newScanFlowFixture()
		addChannel(f, "200000000000000002", false)
		addChannel(f, "200000000000000003", true)

		resp, err := f.flow.StartMultipleChannelScans(context.Background(), &dto.StartMultipleChannelScansRequest{
			GuildID:    testGuildID,
			UserID:     testUserID,
			ChannelIDs: []string{testChannelID, "200000000000000002", "200000000000000003", "200000000000000999"},
		}, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, 2, resp.SuccessCount)
		assert.Equal(t, 2, resp.FailedCount)
		require.Len(t, resp.Results, 4)

		byChannel := make(map[string]dto.ChannelScanOutcome, len(resp.Results))
		for _, r := range resp.Results {
			byChannel[r.ChannelID] = r
		}
		assert.True(t, byChannel[testChannelID].Success)
		assert.Equal(t, "SCANNING_DISABLED", byChannel["200000000000000002"].ErrorCode)
		assert.True(t, byChannel["200000000000000003"].Success)
		assert.Equal(t, "CHANNEL_NOT_FOUND", byChannel["200000000000000999"].ErrorCode)
	})

	t.Run("skips channels with an active scan without touching the queue", func(t *testing.T) {
		f := newScanFlowFixture()
		addChannel(f, "200000000000000002", true)
		f.statuses.rows[channelKey(testGuildID, "200000000000000002")] = &models.ChannelScanStatus{
			GuildID:   testGuildID,
			ChannelID: "200000000000000002",
			Status:    models.ScanStatusRunning,
		}

		resp, err := f.flow.StartMultipleChannelScans(context.Background(), &dto.StartMultipleChannelScansRequest{
			GuildID:    testGuildID,
			UserID:     testUserID,
			ChannelIDs: []string{testChannelID, "200000000000000002"},
		}, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, 1, resp.SuccessCount)
		assert.Equal(t, 1, resp.FailedCount)
		assert.Equal(t, "SCAN_ALREADY_RUNNING", resp.Results[1].ErrorCode)
		assert.Len(t, f.queue.jobs, 1)
	})

	t.Run("results keep the request order", func(t *testing.T) {
		f := newScanFlowFixture()
		ids := []string{"200000000000000010", "200000000000000011", "200000000000000012", "200000000000000013"}
		for _, id := range ids {
			addChannel(f, id, true)
		}

		resp, err := f.flow.StartMultipleChannelScans(context.Background(), &dto.StartMultipleChannelScansRequest{
			GuildID:    testGuildID,
			UserID:     testUserID,
			ChannelIDs: ids,
		}, testMetadata())
		require.NoError(t, err)

		require.Len(t, resp.Results, len(ids))
		for i, id := range ids {
			assert.Equal(t, id, resp.Results[i].ChannelID)
		}
	})
}
