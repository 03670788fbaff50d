package srv

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTokenBucket_BasicAllow(t *testing.T) {
	now := time.Now()
	tb := newTokenBucket(RateLimitConfig{Rate: 10, Burst: 3}, now)
	for i := 0; i < 3; i++ {
		if !tb.allow(now) {
			t.Fatalf("expected allow on request %d", i)
		}
	}
	if tb.allow(now) {
		t.Fatal("expected deny after burst exhausted")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(RateLimitConfig{Rate: 10, Burst: 3}, clock.now())
	for i := 0; i < 3; i++ {
		tb.allow(clock.now())
	}
	clock.advance(150 * time.Millisecond)
	if !tb.allow(clock.now()) {
		t.Fatal("expected allow after refill")
	}
	// Refill never exceeds the burst.
	clock.advance(time.Hour)
	for i := 0; i < 3; i++ {
		if !tb.allow(clock.now()) {
			t.Fatalf("expected allow on request %d after long idle", i)
		}
	}
	if tb.allow(clock.now()) {
		t.Fatal("bucket refilled past its burst")
	}
}

func TestConnectionRateLimiter_AllowNormal(t *testing.T) {
	rl := NewConnectionRateLimiter()
	for i := 0; i < 5; i++ {
		allowed, disconnect := rl.Allow("ping")
		if !allowed {
			t.Fatalf("expected allow on request %d", i)
		}
		if disconnect {
			t.Fatal("unexpected disconnect")
		}
	}
}

func TestConnectionRateLimiter_PerTypeLimit(t *testing.T) {
	rl := newRateLimiter(newFakeClock().now)
	// answer: burst=4, so the 5th is denied
	for i := 0; i < 4; i++ {
		if allowed, _ := rl.Allow("answer"); !allowed {
			t.Fatalf("expected allow on answer %d", i)
		}
	}
	if allowed, _ := rl.Allow("answer"); allowed {
		t.Fatal("expected deny on answer after burst")
	}
	// Other types keep their own buckets.
	if allowed, _ := rl.Allow("ping"); !allowed {
		t.Fatal("ping denied after answer burst")
	}
}

func TestConnectionRateLimiter_GlobalLimit(t *testing.T) {
	rl := newRateLimiter(newFakeClock().now)
	types := []string{"answer", "ping", "start", "reset", "play_again", "other"}
	denied := 0
	for i := 0; i < 30; i++ {
		if allowed, _ := rl.Allow(types[i%len(types)]); !allowed {
			denied++
		}
	}
	if denied == 0 {
		t.Fatal("expected global rate limit to kick in")
	}
}

func TestConnectionRateLimiter_DisconnectOnExcessiveViolations(t *testing.T) {
	rl := newRateLimiter(newFakeClock().now)
	disconnected := false
	for i := 0; i < 100; i++ {
		if _, drop := rl.Allow("answer"); drop {
			disconnected = true
			break
		}
	}
	if !disconnected {
		t.Fatal("expected disconnect after excessive violations")
	}
}

func TestConnectionRateLimiter_UnknownType(t *testing.T) {
	rl := newRateLimiter(newFakeClock().now)
	allowed1, _ := rl.Allow("unknown_type")
	allowed2, _ := rl.Allow("unknown_type")
	allowed3, _ := rl.Allow("unknown_type")
	if !allowed1 || !allowed2 {
		t.Fatal("expected first 2 unknown type messages to be allowed")
	}
	if allowed3 {
		t.Fatal("expected 3rd unknown type message to be denied")
	}
}
