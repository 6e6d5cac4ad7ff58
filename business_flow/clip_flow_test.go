package businessflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cranberriez/DiscordClipSaver-sub001/app/dto"
	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
)

// fakeClipRepo pages over an in-memory slice, newest first semantics being
// the caller's concern
type fakeClipRepo struct {
	clips []*models.Clip
	err   error

	lastLimit  int
	lastOffset int
}

func (f *fakeClipRepo) ListByChannel(ctx context.Context, guildID, channelID string, limit, offset int) ([]*models.Clip, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastLimit = limit
	f.lastOffset = offset

	if offset >= len(f.clips) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.clips) {
		end = len(f.clips)
	}
	return f.clips[offset:end], nil
}

func (f *fakeClipRepo) CountByChannel(ctx context.Context, guildID, channelID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.clips)), nil
}

func (f *fakeClipRepo) ByID(ctx context.Context, id uint) (*models.Clip, error) {
	return nil, nil
}

func (f *fakeClipRepo) ByFilter(ctx context.Context, filter models.ClipFilter, orderBy string, limit, offset int) ([]*models.Clip, error) {
	return nil, nil
}

func (f *fakeClipRepo) Save(ctx context.Context, entity *models.Clip) error {
	return nil
}

func (f *fakeClipRepo) SaveBatch(ctx context.Context, entities []*models.Clip) error {
	return nil
}

func (f *fakeClipRepo) Count(ctx context.Context, filter models.ClipFilter) (int64, error) {
	return 0, nil
}

func makeClips(n int) []*models.Clip {
	clips := make([]*models.Clip, 0, n)
	for i := 0; i < n; i++ {
		clips = append(clips, &models.Clip{
			GuildID:      testGuildID,
			ChannelID:    testChannelID,
			MessageID:    fmt.Sprintf("129000000000000%04d", i),
			AttachmentID: fmt.Sprintf("128000000000000%04d", i),
			AuthorID:     "300000000000000001",
			Filename:     fmt.Sprintf("clip_%d.mp4", i),
			URL:          fmt.Sprintf("https://cdn.discordapp.com/attachments/%s/%d/clip_%d.mp4", testChannelID, i, i),
			SizeBytes:    1 << 20,
			PostedAt:     utils.UTCNow(),
		})
	}
	return clips
}

func TestListClips(t *testing.T) {
	newFixture := func(clipCount int) (ClipFlow, *fakeClipRepo) {
		guilds := &fakeGuildRepo{owners: map[string]string{testGuildID: testUserID}}
		clips := &fakeClipRepo{clips: makeClips(clipCount)}
		return NewClipFlow(guilds, clips), clips
	}

	listReq := func(page, pageSize int) *dto.ListClipsRequest {
		return &dto.ListClipsRequest{
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			UserID:    testUserID,
			Page:      page,
			PageSize:  pageSize,
		}
	}

	t.Run("returns one page with the total count", func(t *testing.T) {
		flow, _ := newFixture(60)

		resp, err := flow.ListClips(context.Background(), listReq(2, 25), testMetadata())
		require.NoError(t, err)

		assert.Len(t, resp.Clips, 25)
		assert.Equal(t, int64(60), resp.Total)
		assert.Equal(t, 2, resp.Page)
		assert.Equal(t, 25, resp.PageSize)
		assert.Equal(t, "clip_25.mp4", resp.Clips[0].Filename, "second page starts after the first")
	})

	t.Run("defaults page and page size when unset", func(t *testing.T) {
		flow, repo := newFixture(10)

		resp, err := flow.ListClips(context.Background(), listReq(0, 0), testMetadata())
		require.NoError(t, err)

		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, defaultClipPageSize, resp.PageSize)
		assert.Equal(t, defaultClipPageSize, repo.lastLimit)
		assert.Zero(t, repo.lastOffset)
		assert.Len(t, resp.Clips, 10)
	})

	t.Run("a page past the end is empty but keeps the total", func(t *testing.T) {
		flow, _ := newFixture(5)

		resp, err := flow.ListClips(context.Background(), listReq(3, 25), testMetadata())
		require.NoError(t, err)

		assert.Empty(t, resp.Clips)
		assert.Equal(t, int64(5), resp.Total)
	})

	t.Run("rejects a caller who does not own the guild", func(t *testing.T) {
		flow, _ := newFixture(5)

		req := listReq(1, 25)
		req.UserID = "999999999999999999"
		_, err := flow.ListClips(context.Background(), req, testMetadata())
		assert.True(t, IsUnauthorized(err))
	})
}
