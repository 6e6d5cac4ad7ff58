package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	apptesting "github.com/cranberriez/DiscordClipSaver-sub001/testing"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
)

// setupStatusRepoTest provisions an isolated test database. Skips when no
// PostgreSQL server is reachable so the unit suite stays runnable offline.
func setupStatusRepoTest(t *testing.T) (ScanStatusRepository, *apptesting.TestFixtures, func()) {
	t.Helper()

	tdb, err := apptesting.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	repo := NewScanStatusRepository(tdb.DB)
	fixtures := apptesting.NewTestFixtures(tdb)
	cleanup := func() {
		if err := tdb.TeardownTestDB(); err != nil {
			t.Logf("teardown failed: %v", err)
		}
	}
	return repo, fixtures, cleanup
}

func TestReserveQueued(t *testing.T) {
	repo, fixtures, cleanup := setupStatusRepoTest(t)
	defer cleanup()

	ctx := context.Background()

	guild, err := fixtures.CreateTestGuild("300000000000000001")
	require.NoError(t, err)
	channel, err := fixtures.CreateTestChannel(guild.GuildID, 0)
	require.NoError(t, err)

	t.Run("creates the row on first reservation", func(t *testing.T) {
		reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.True(t, reserved)

		row, err := repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, models.ScanStatusQueued, row.Status)
		assert.Nil(t, row.ErrorMessage)
	})

	t.Run("rejects while the row is queued", func(t *testing.T) {
		reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.False(t, reserved)
	})

	t.Run("rejects while the row is running", func(t *testing.T) {
		picked, err := repo.MarkRunning(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		require.True(t, picked)

		reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.False(t, reserved)
	})

	t.Run("re-reserves over a terminal row and clears the error", func(t *testing.T) {
		require.NoError(t, repo.Fail(ctx, guild.GuildID, channel.ChannelID, "worker crashed"))

		row, err := repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		require.NotNil(t, row.ErrorMessage)

		reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.True(t, reserved)

		row, err = repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, models.ScanStatusQueued, row.Status)
		assert.Nil(t, row.ErrorMessage)
	})
}

func TestReserveQueuedConcurrent(t *testing.T) {
	repo, fixtures, cleanup := setupStatusRepoTest(t)
	defer cleanup()

	ctx := context.Background()

	guild, err := fixtures.CreateTestGuild("300000000000000001")
	require.NoError(t, err)
	channel, err := fixtures.CreateTestChannel(guild.GuildID, 0)
	require.NoError(t, err)

	const racers = 10
	var wg sync.WaitGroup
	results := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
			if err != nil {
				t.Errorf("reservation error: %v", err)
				return
			}
			results <- reserved
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for reserved := range results {
		if reserved {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent caller may reserve")
}

func TestReleaseReservation(t *testing.T) {
	repo, fixtures, cleanup := setupStatusRepoTest(t)
	defer cleanup()

	ctx := context.Background()

	guild, err := fixtures.CreateTestGuild("300000000000000001")
	require.NoError(t, err)

	t.Run("restores the previous status", func(t *testing.T) {
		channel, err := fixtures.CreateTestChannel(guild.GuildID, 0)
		require.NoError(t, err)
		_, err = fixtures.CreateTestScanStatus(guild.GuildID, channel.ChannelID, models.ScanStatusSucceeded)
		require.NoError(t, err)

		reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		require.True(t, reserved)

		prev := models.ScanStatusSucceeded
		require.NoError(t, repo.ReleaseReservation(ctx, guild.GuildID, channel.ChannelID, &prev, "enqueue failed"))

		row, err := repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, models.ScanStatusSucceeded, row.Status)
	})

	t.Run("marks a fresh row failed when there was no previous status", func(t *testing.T) {
		channel, err := fixtures.CreateTestChannel(guild.GuildID, 1)
		require.NoError(t, err)

		reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		require.True(t, reserved)

		require.NoError(t, repo.ReleaseReservation(ctx, guild.GuildID, channel.ChannelID, nil, "enqueue failed: stream down"))

		row, err := repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, models.ScanStatusFailed, row.Status)
		require.NotNil(t, row.ErrorMessage)
		assert.Contains(t, *row.ErrorMessage, "enqueue failed")
	})
}

func TestWorkerTransitions(t *testing.T) {
	repo, fixtures, cleanup := setupStatusRepoTest(t)
	defer cleanup()

	ctx := context.Background()

	guild, err := fixtures.CreateTestGuild("300000000000000001")
	require.NoError(t, err)
	channel, err := fixtures.CreateTestChannel(guild.GuildID, 0)
	require.NoError(t, err)

	reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
	require.NoError(t, err)
	require.True(t, reserved)

	t.Run("mark running picks up a queued row exactly once", func(t *testing.T) {
		picked, err := repo.MarkRunning(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.True(t, picked)

		picked, err = repo.MarkRunning(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.False(t, picked, "second pickup must lose")
	})

	t.Run("progress accumulates counters and widens the window", func(t *testing.T) {
		require.NoError(t, repo.RecordProgress(ctx, guild.GuildID, channel.ChannelID, models.ScanProgress{
			MessagesScanned:   100,
			ClipMessagesFound: 3,
			ForwardMessageID:  utils.ToPtr("1290000000000000000"),
			BackwardMessageID: utils.ToPtr("1280000000000000000"),
		}))
		require.NoError(t, repo.RecordProgress(ctx, guild.GuildID, channel.ChannelID, models.ScanProgress{
			MessagesScanned:   50,
			ClipMessagesFound: 2,
			ForwardMessageID:  utils.ToPtr("1295000000000000000"),
			BackwardMessageID: utils.ToPtr("1285000000000000000"),
		}))

		row, err := repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, int64(150), row.TotalMessagesScanned)
		assert.Equal(t, int64(5), row.MessageCount)

		require.NotNil(t, row.ForwardMessageID)
		require.NotNil(t, row.BackwardMessageID)
		assert.Equal(t, "1295000000000000000", *row.ForwardMessageID)
		assert.Equal(t, "1280000000000000000", *row.BackwardMessageID, "backward cursor only moves older")
	})

	t.Run("complete finishes the run", func(t *testing.T) {
		require.NoError(t, repo.Complete(ctx, guild.GuildID, channel.ChannelID))

		row, err := repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
		require.NoError(t, err)
		assert.Equal(t, models.ScanStatusSucceeded, row.Status)
	})
}

func TestFailStuckQueued(t *testing.T) {
	repo, fixtures, cleanup := setupStatusRepoTest(t)
	defer cleanup()

	ctx := context.Background()

	guild, err := fixtures.CreateTestGuild("300000000000000001")
	require.NoError(t, err)
	channel, err := fixtures.CreateTestChannel(guild.GuildID, 0)
	require.NoError(t, err)

	reserved, err := repo.ReserveQueued(ctx, guild.GuildID, channel.ChannelID)
	require.NoError(t, err)
	require.True(t, reserved)

	// A fresh reservation is younger than any reasonable max age
	failed, err := repo.FailStuckQueued(ctx, time.Hour, "stale")
	require.NoError(t, err)
	assert.Zero(t, failed)

	row, err := repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusQueued, row.Status)

	// A negative max age moves the cutoff into the future so everything
	// queued counts as stuck
	failed, err = repo.FailStuckQueued(ctx, -time.Second, "scan was queued but never picked up by a worker")
	require.NoError(t, err)
	assert.Equal(t, int64(1), failed)

	row, err = repo.ByChannel(ctx, guild.GuildID, channel.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, models.ScanStatusFailed, row.Status)
	require.NotNil(t, row.ErrorMessage)
	assert.Contains(t, *row.ErrorMessage, "never picked up")
}
