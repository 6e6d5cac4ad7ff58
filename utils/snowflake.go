// Package utils provides utility functions for the application.
package utils

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
)

// SnowflakeValue parses a Discord snowflake id into its numeric form.
// Returns 0 for an empty or malformed id.
func SnowflakeValue(id string) uint64 {
	if id == "" {
		return 0
	}
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// SnowflakeNewer reports whether a is chronologically newer than b.
// Snowflakes are time-ordered, so numeric comparison is sufficient.
func SnowflakeNewer(a, b string) bool {
	return SnowflakeValue(a) > SnowflakeValue(b)
}

// SnowflakeOlder reports whether a is chronologically older than b.
func SnowflakeOlder(a, b string) bool {
	return SnowflakeValue(a) < SnowflakeValue(b)
}

// SnowflakeTime returns the creation time embedded in a snowflake id,
// falling back to the zero time for malformed input.
func SnowflakeTime(id string) time.Time {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return t
}
