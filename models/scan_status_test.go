package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cranberriez/DiscordClipSaver-sub001/utils"
)

func TestScanStatusValid(t *testing.T) {
	valid := []ScanStatus{ScanStatusQueued, ScanStatusRunning, ScanStatusSucceeded, ScanStatusFailed, ScanStatusCancelled}
	for _, s := range valid {
		assert.True(t, s.Valid(), "status %s should be valid", s)
	}

	assert.False(t, ScanStatus("").Valid())
	assert.False(t, ScanStatus("paused").Valid())
}

func TestScanStatusIsActive(t *testing.T) {
	assert.True(t, ScanStatusQueued.IsActive())
	assert.True(t, ScanStatusRunning.IsActive())

	assert.False(t, ScanStatusSucceeded.IsActive())
	assert.False(t, ScanStatusFailed.IsActive())
	assert.False(t, ScanStatusCancelled.IsActive())
}

func TestScanStatusIsTerminal(t *testing.T) {
	assert.True(t, ScanStatusSucceeded.IsTerminal())
	assert.True(t, ScanStatusFailed.IsTerminal())
	assert.True(t, ScanStatusCancelled.IsTerminal())

	assert.False(t, ScanStatusQueued.IsTerminal())
	assert.False(t, ScanStatusRunning.IsTerminal())
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    ScanStatus
		to      ScanStatus
		allowed bool
	}{
		{ScanStatusQueued, ScanStatusRunning, true},
		{ScanStatusQueued, ScanStatusFailed, true},
		{ScanStatusQueued, ScanStatusCancelled, true},
		{ScanStatusQueued, ScanStatusSucceeded, false},
		{ScanStatusQueued, ScanStatusQueued, false},

		{ScanStatusRunning, ScanStatusSucceeded, true},
		{ScanStatusRunning, ScanStatusFailed, true},
		{ScanStatusRunning, ScanStatusCancelled, true},
		{ScanStatusRunning, ScanStatusQueued, false},

		{ScanStatusSucceeded, ScanStatusQueued, true},
		{ScanStatusSucceeded, ScanStatusRunning, false},
		{ScanStatusFailed, ScanStatusQueued, true},
		{ScanStatusCancelled, ScanStatusQueued, true},
	}

	for _, tt := range tests {
		row := &ChannelScanStatus{Status: tt.from}
		assert.Equal(t, tt.allowed, row.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsDispatchable(t *testing.T) {
	tests := []struct {
		name     string
		row      ChannelScanStatus
		expected bool
	}{
		{"queued blocks dispatch", ChannelScanStatus{Status: ScanStatusQueued}, false},
		{"running blocks dispatch", ChannelScanStatus{Status: ScanStatusRunning}, false},
		{"succeeded allows dispatch", ChannelScanStatus{Status: ScanStatusSucceeded}, true},
		{"failed allows dispatch", ChannelScanStatus{Status: ScanStatusFailed}, true},
		{"cancelled allows dispatch", ChannelScanStatus{Status: ScanStatusCancelled}, true},
		{
			"soft-deleted row always allows dispatch",
			ChannelScanStatus{Status: ScanStatusRunning, DeletedAt: utils.ToPtr(time.Now().UTC())},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.row.IsDispatchable())
		})
	}
}

func TestScannedRange(t *testing.T) {
	forward := "1290000000000000000"
	backward := "1280000000000000000"

	row := ChannelScanStatus{
		Status:            ScanStatusSucceeded,
		ForwardMessageID:  &forward,
		BackwardMessageID: &backward,
	}

	f, b := row.ScannedRange()
	assert.Equal(t, &forward, f)
	assert.Equal(t, &backward, b)

	// Soft-deleted rows report no window
	row.DeletedAt = utils.ToPtr(time.Now().UTC())
	f, b = row.ScannedRange()
	assert.Nil(t, f)
	assert.Nil(t, b)
}

func TestParseRescanPolicy(t *testing.T) {
	tests := []struct {
		input       string
		expected    RescanPolicy
		expectError bool
	}{
		{"", RescanStop, false},
		{"stop", RescanStop, false},
		{"continue", RescanContinue, false},
		{"update", RescanUpdate, false},
		{"everything", "", true},
		{"STOP", "", true},
	}

	for _, tt := range tests {
		policy, err := ParseRescanPolicy(tt.input)
		if tt.expectError {
			assert.Error(t, err, "input %q", tt.input)
		} else {
			assert.NoError(t, err, "input %q", tt.input)
			assert.Equal(t, tt.expected, policy)
		}
	}
}

func TestScanDirectionValid(t *testing.T) {
	assert.True(t, ScanDirectionForward.Valid())
	assert.True(t, ScanDirectionBackward.Valid())
	assert.False(t, ScanDirection("sideways").Valid())
	assert.False(t, ScanDirection("").Valid())
}
