package srv

import (
	"sync"
	"time"
)

// RateLimitConfig defines per-message-type rate limits.
type RateLimitConfig struct {
	// Rate is the number of tokens added per second.
	Rate float64
	// Burst is the maximum number of tokens (bucket capacity).
	Burst int
}

// Default rate limit configurations per client message type.
var defaultRateLimits = map[string]RateLimitConfig{
	// Game actions
	"answer":     {Rate: 2, Burst: 4},
	"play_again": {Rate: 0.5, Burst: 2},

	// Table setup
	"start": {Rate: 0.5, Burst: 3},
	"reset": {Rate: 0.5, Burst: 3},

	"ping": {Rate: 2, Burst: 5},
}

// violationLimit is how many refused messages a connection may send before
// it is dropped.
const violationLimit = 50

// globalRateLimit applies to all messages regardless of type.
var globalRateLimit = RateLimitConfig{Rate: 10, Burst: 20}

type tokenBucket struct {
	tokens    float64
	max       float64
	rate      float64
	lastCheck time.Time
}

func newTokenBucket(cfg RateLimitConfig, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:    float64(cfg.Burst),
		max:       float64(cfg.Burst),
		rate:      cfg.Rate,
		lastCheck: now,
	}
}

// allow refills the bucket for the time since the last call and takes one
// token if there is one.
func (tb *tokenBucket) allow(now time.Time) bool {
	tb.tokens = min(tb.max, tb.tokens+now.Sub(tb.lastCheck).Seconds()*tb.rate)
	tb.lastCheck = now
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// ConnectionRateLimiter manages rate limits for a single WebSocket connection.
type ConnectionRateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	global  *tokenBucket
	buckets map[string]*tokenBucket
	// violations rises on each refusal and decays on each allowed message.
	violations int
}

// NewConnectionRateLimiter creates a rate limiter for one connection.
func NewConnectionRateLimiter() *ConnectionRateLimiter {
	return newRateLimiter(time.Now)
}

func newRateLimiter(now func() time.Time) *ConnectionRateLimiter {
	return &ConnectionRateLimiter{
		now:     now,
		global:  newTokenBucket(globalRateLimit, now()),
		buckets: make(map[string]*tokenBucket),
	}
}

// Allow reports whether a message of msgType may be processed, and whether
// the connection has misbehaved enough to be dropped.
func (rl *ConnectionRateLimiter) Allow(msgType string) (allowed, disconnect bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if !rl.global.allow(now) {
		rl.violations++
		return false, rl.violations >= violationLimit
	}

	bucket, ok := rl.buckets[msgType]
	if !ok {
		cfg, known := defaultRateLimits[msgType]
		if !known {
			cfg = RateLimitConfig{Rate: 1, Burst: 2}
		}
		bucket = newTokenBucket(cfg, now)
		rl.buckets[msgType] = bucket
	}
	if !bucket.allow(now) {
		rl.violations++
		return false, rl.violations >= violationLimit
	}

	if rl.violations > 0 {
		rl.violations--
	}
	return true, false
}
