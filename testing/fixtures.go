// Package testing provides test utilities and database setup for testing the scan coordination system
package testing

import (
	"fmt"
	"math/rand"

	"github.com/cranberriez/DiscordClipSaver-sub001/models"
	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// randomSnowflake returns a plausible Discord snowflake as a decimal string
func randomSnowflake() string {
	return fmt.Sprintf("%d", rand.Int63n(900000000000000000)+100000000000000000)
}

// CreateTestGuild creates a guild owned by the given user
func (tf *TestFixtures) CreateTestGuild(ownerUserID string) (*models.Guild, error) {
	guild := &models.Guild{
		GuildID:     randomSnowflake(),
		Name:        "Test Guild",
		OwnerUserID: ownerUserID,
	}

	if err := tf.DB.DB.Create(guild).Error; err != nil {
		return nil, fmt.Errorf("failed to create test guild: %w", err)
	}

	return guild, nil
}

// CreateTestChannel creates a scannable channel in the given guild
func (tf *TestFixtures) CreateTestChannel(guildID string, position int) (*models.Channel, error) {
	channel := &models.Channel{
		GuildID:            guildID,
		ChannelID:          randomSnowflake(),
		Name:               fmt.Sprintf("test-channel-%d", position),
		Position:           position,
		MessageScanEnabled: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(channel).Error; err != nil {
		return nil, fmt.Errorf("failed to create test channel: %w", err)
	}

	return channel, nil
}

// CreateTestScanStatus creates a scan status row in the given state
func (tf *TestFixtures) CreateTestScanStatus(guildID, channelID string, status models.ScanStatus) (*models.ChannelScanStatus, error) {
	scanStatus := &models.ChannelScanStatus{
		GuildID:   guildID,
		ChannelID: channelID,
		Status:    status,
	}

	if err := tf.DB.DB.Create(scanStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to create test scan status: %w", err)
	}

	return scanStatus, nil
}

// CreateTestClip creates an archived clip record for the given channel
func (tf *TestFixtures) CreateTestClip(guildID, channelID string) (*models.Clip, error) {
	messageID := randomSnowflake()
	clip := &models.Clip{
		GuildID:      guildID,
		ChannelID:    channelID,
		MessageID:    messageID,
		AttachmentID: randomSnowflake(),
		AuthorID:     randomSnowflake(),
		Filename:     "clip.mp4",
		URL:          fmt.Sprintf("https://cdn.discordapp.com/attachments/%s/%s/clip.mp4", channelID, messageID),
		SizeBytes:    1024 * 1024,
	}

	if err := tf.DB.DB.Create(clip).Error; err != nil {
		return nil, fmt.Errorf("failed to create test clip: %w", err)
	}

	return clip, nil
}
