package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Scan dispatch constants
const (
	// DefaultScanLimit is the batch size used when the caller does not supply one
	DefaultScanLimit = 100

	// MaxScanLimit is the hard cap on messages per batch; caller-supplied values
	// above this are clamped, never rejected
	MaxScanLimit = 10000

	// QueuedReservationTimeout is how long a channel may sit in QUEUED with no
	// worker pickup before the reconciliation sweep fails it
	QueuedReservationTimeout = 15 * time.Minute
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// ContextKey is the type used for request-scoped context values
type ContextKey string

// Request-scoped context keys for observability
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)
