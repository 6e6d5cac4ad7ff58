// Package businessflow contains the core business logic and use cases for scan coordination workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Authorization errors
	ErrUnauthorized  = errors.New("user does not own this guild")
	ErrGuildNotFound = errors.New("guild not found")

	// Channel errors
	ErrChannelNotFound  = errors.New("channel not found")
	ErrScanningDisabled = errors.New("message scanning is disabled for this channel")

	// Scan dispatch errors
	ErrScanAlreadyRunning  = errors.New("a scan is already queued or running for this channel")
	ErrQueueDispatchFailed = errors.New("scan was reserved but could not be enqueued")
	ErrInvalidRescanMode   = errors.New("rescan mode must be one of: stop, continue, update")
	ErrNoChannelsRequested = errors.New("at least one channel id is required")

	// Discord sync errors
	ErrDiscordUnavailable = errors.New("discord API is unavailable")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsGuildNotFound(err error) bool {
	return errors.Is(err, ErrGuildNotFound)
}

func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}

func IsScanningDisabled(err error) bool {
	return errors.Is(err, ErrScanningDisabled)
}

func IsScanAlreadyRunning(err error) bool {
	return errors.Is(err, ErrScanAlreadyRunning)
}

func IsQueueDispatchFailed(err error) bool {
	return errors.Is(err, ErrQueueDispatchFailed)
}

func IsInvalidRescanMode(err error) bool {
	return errors.Is(err, ErrInvalidRescanMode)
}

func IsNoChannelsRequested(err error) bool {
	return errors.Is(err, ErrNoChannelsRequested)
}

func IsDiscordUnavailable(err error) bool {
	return errors.Is(err, ErrDiscordUnavailable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
