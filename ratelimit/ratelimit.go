// Package ratelimit implements a fixed-window request limiter on top of the
// shared cache, so limits hold across instances when the cache is shared.
package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/use-agent/souschef/cache"
	"github.com/use-agent/souschef/metrics"
)

// Limiter decides whether an identity may make another request in the
// current window.
type Limiter struct {
	cache *cache.Manager
	now   func() time.Time
}

// New creates a Limiter storing its counters in c.
func New(c *cache.Manager) *Limiter {
	return &Limiter{cache: c, now: time.Now}
}

// IsAllowed admits at most limit calls per identity in each window.
//
// The counter lives at ratelimit:<identity>:<window index> and expires with
// the window, so every window starts from zero. If the count already meets
// the limit the call is denied without incrementing; otherwise the counter
// is incremented and the call allowed when the new value is within limit.
// Any cache failure allows the call.
func (l *Limiter) IsAllowed(ctx context.Context, identity string, limit int, window time.Duration) bool {
	if limit <= 0 || window <= 0 {
		return true
	}

	key := l.key(identity, window)

	// A miss and an unreadable counter both read as zero.
	var current int64
	l.cache.Get(ctx, key, &current)
	if current >= int64(limit) {
		metrics.RateLimitDecisions.WithLabelValues("denied").Inc()
		return false
	}

	next, ok := l.cache.Increment(ctx, key, 1, window)
	if !ok {
		slog.Warn("rate limit increment failed, allowing request", "identity", identity)
		metrics.RateLimitDecisions.WithLabelValues("fail_open").Inc()
		return true
	}
	if next > int64(limit) {
		metrics.RateLimitDecisions.WithLabelValues("denied").Inc()
		return false
	}
	metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
	return true
}

// Remaining returns how many calls identity has left in the current window.
func (l *Limiter) Remaining(ctx context.Context, identity string, limit int, window time.Duration) int {
	var current int64
	l.cache.Get(ctx, l.key(identity, window), &current)
	if left := int64(limit) - current; left > 0 {
		return int(left)
	}
	return 0
}

// ResetAt returns when the current window for the given size ends.
func (l *Limiter) ResetAt(window time.Duration) time.Time {
	return time.Unix(0, (l.windowIndex(window)+1)*int64(window))
}

func (l *Limiter) windowIndex(window time.Duration) int64 {
	return l.now().UnixNano() / int64(window)
}

func (l *Limiter) key(identity string, window time.Duration) string {
	return "ratelimit:" + identity + ":" + strconv.FormatInt(l.windowIndex(window), 10)
}
