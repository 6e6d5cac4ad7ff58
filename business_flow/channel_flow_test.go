package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
)

// fakeDiscordGateway returns a canned channel list or an error
type fakeDiscordGateway struct {
	channels []*models.Channel
	err      error
}

func (f *fakeDiscordGateway) GuildTextChannels(ctx context.Context, guildID string) ([]*models.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.channels, nil
}

type channelFlowFixture struct {
	flow     ChannelFlow
	guilds   *fakeGuildRepo
	channels *fakeChannelRepo
	statuses *fakeStatusRepo
	discord  *fakeDiscordGateway
}

func newChannelFlowFixture() *channelFlowFixture {
	guilds := &fakeGuildRepo{owners: map[string]string{testGuildID: testUserID}}
	channels := &fakeChannelRepo{channels: make(map[string]*models.Channel)}
	statuses := newFakeStatusRepo()
	discord := &fakeDiscordGateway{}

	return &channelFlowFixture{
		flow:     NewChannelFlow(guilds, channels, statuses, discord),
		guilds:   guilds,
		channels: channels,
		statuses: statuses,
		discord:  discord,
	}
}

func (f *channelFlowFixture) addChannel(channelID string, enabled bool) {
	f.channels.channels[channelKey(testGuildID, channelID)] = &models.Channel{
		GuildID:            testGuildID,
		ChannelID:          channelID,
		Name:               "clips-" + channelID,
		MessageScanEnabled: utils.ToPtr(enabled),
	}
}

func TestListChannels(t *testing.T) {
	t.Run("joins channels with their scan records", func(t *testing.T) {
		f := newChannelFlowFixture()
		f.addChannel(testChannelID, true)
		f.addChannel("200000000000000002", false)
		f.statuses.rows[channelKey(testGuildID, testChannelID)] = &models.ChannelScanStatus{
			GuildID:              testGuildID,
			ChannelID:            testChannelID,
			Status:               models.ScanStatusSucceeded,
			MessageCount:         12,
			TotalMessagesScanned: 400,
		}

		resp, err := f.flow.ListChannels(context.Background(), &dto.ListChannelsRequest{
			GuildID: testGuildID,
			UserID:  testUserID,
		}, testMetadata())
		require.NoError(t, err)
		require.Len(t, resp.Channels, 2)

		byID := make(map[string]dto.ChannelWithScanStatus, len(resp.Channels))
		for _, ch := range resp.Channels {
			byID[ch.ChannelID] = ch
		}

		scanned := byID[testChannelID]
		assert.True(t, scanned.MessageScanEnabled)
		require.NotNil(t, scanned.ScanStatus)
		assert.Equal(t, string(models.ScanStatusSucceeded), scanned.ScanStatus.Status)
		assert.Equal(t, int64(12), scanned.ScanStatus.MessageCount)

		unscanned := byID["200000000000000002"]
		assert.False(t, unscanned.MessageScanEnabled)
		assert.Nil(t, unscanned.ScanStatus, "unscanned channel carries no status")
	})

	t.Run("hides soft-deleted scan records", func(t *testing.T) {
		f := newChannelFlowFixture()
		f.addChannel(testChannelID, true)
		f.statuses.rows[channelKey(testGuildID, testChannelID)] = &models.ChannelScanStatus{
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			Status:    models.ScanStatusSucceeded,
			DeletedAt: utils.ToPtr(utils.UTCNow()),
		}

		resp, err := f.flow.ListChannels(context.Background(), &dto.ListChannelsRequest{
			GuildID: testGuildID,
			UserID:  testUserID,
		}, testMetadata())
		require.NoError(t, err)
		require.Len(t, resp.Channels, 1)
		assert.Nil(t, resp.Channels[0].ScanStatus)
	})

	t.Run("rejects a caller who does not own the guild", func(t *testing.T) {
		f := newChannelFlowFixture()

		_, err := f.flow.ListChannels(context.Background(), &dto.ListChannelsRequest{
			GuildID: testGuildID,
			UserID:  "999999999999999999",
		}, testMetadata())
		assert.True(t, IsUnauthorized(err))
	})
}

func TestSyncChannels(t *testing.T) {
	t.Run("upserts fetched channels and prunes the rest", func(t *testing.T) {
		f := newChannelFlowFixture()
		f.discord.channels = []*models.Channel{
			{GuildID: testGuildID, ChannelID: "200000000000000001", Name: "clips"},
			{GuildID: testGuildID, ChannelID: "200000000000000002", Name: "highlights"},
		}
		f.channels.removedCount = 1

		resp, err := f.flow.SyncChannels(context.Background(), &dto.SyncChannelsRequest{
			GuildID: testGuildID,
			UserID:  testUserID,
		}, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, 2, resp.ChannelCount)
		assert.Equal(t, int64(1), resp.RemovedCount)
		assert.Len(t, f.channels.upserted, 2)
		assert.ElementsMatch(t, []string{"200000000000000001", "200000000000000002"}, f.channels.keepIDs)
	})

	t.Run("an empty guild still prunes stale channels", func(t *testing.T) {
		f := newChannelFlowFixture()
		f.channels.removedCount = 3

		resp, err := f.flow.SyncChannels(context.Background(), &dto.SyncChannelsRequest{
			GuildID: testGuildID,
			UserID:  testUserID,
		}, testMetadata())
		require.NoError(t, err)

		assert.Zero(t, resp.ChannelCount)
		assert.Equal(t, int64(3), resp.RemovedCount)
		assert.Empty(t, f.channels.upserted)
	})

	t.Run("maps a Discord outage to its sentinel", func(t *testing.T) {
		f := newChannelFlowFixture()
		f.discord.err = errors.New("429 too many requests")

		_, err := f.flow.SyncChannels(context.Background(), &dto.SyncChannelsRequest{
			GuildID: testGuildID,
			UserID:  testUserID,
		}, testMetadata())
		assert.True(t, IsDiscordUnavailable(err))
		assert.Empty(t, f.channels.upserted, "nothing is written on a failed fetch")
	})
}

func TestSetChannelScanEnabled(t *testing.T) {
	t.Run("toggles scanning off and on", func(t *testing.T) {
		f := newChannelFlowFixture()
		f.addChannel(testChannelID, true)

		resp, err := f.flow.SetChannelScanEnabled(context.Background(), &dto.SetChannelScanEnabledRequest{
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			UserID:    testUserID,
			Enabled:   utils.ToPtr(false),
		}, testMetadata())
		require.NoError(t, err)
		assert.False(t, resp.Enabled)
		assert.False(t, f.channels.scanToggles[channelKey(testGuildID, testChannelID)])

		resp, err = f.flow.SetChannelScanEnabled(context.Background(), &dto.SetChannelScanEnabledRequest{
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			UserID:    testUserID,
			Enabled:   utils.ToPtr(true),
		}, testMetadata())
		require.NoError(t, err)
		assert.True(t, resp.Enabled)
	})

	t.Run("rejects an unknown channel", func(t *testing.T) {
		f := newChannelFlowFixture()

		_, err := f.flow.SetChannelScanEnabled(context.Background(), &dto.SetChannelScanEnabledRequest{
			GuildID:   testGuildID,
			ChannelID: "200000000000000999",
			UserID:    testUserID,
			Enabled:   utils.ToPtr(true),
		}, testMetadata())
		assert.True(t, IsChannelNotFound(err))
	})
}
