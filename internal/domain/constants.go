package domain

import "time"

// ==== WebSocket Constants ====

// MaxMessageSize is the maximum allowed WebSocket message size in bytes
const MaxMessageSize = 4096

// SendBufferSize is the per-client outbound queue length
const SendBufferSize = 256

// ==== Auth Constants ====

// DefaultTokenTTL matches the lifetime of login tokens issued by the ticketing app
const DefaultTokenTTL = 8 * time.Hour

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints (requests/sec)
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket connections (req/sec)
	DefaultRateLimitWS = 5
)

// ==== Timing Constants ====

const (
	// ShutdownGracePeriod bounds graceful HTTP shutdown
	ShutdownGracePeriod = 30 * time.Second
)

// TimestampLayout renders ISO-8601 UTC with millisecond precision
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
