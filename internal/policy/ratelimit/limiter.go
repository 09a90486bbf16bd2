// Package ratelimit throttles outbound publishes with one token bucket per platform.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/socialrelay/internal/metrics"
	"github.com/JakeFAU/socialrelay/internal/relay"
)

// Limiter manages per-platform rate limits.
type Limiter struct {
	mu       sync.Mutex
	limiters map[relay.Platform]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// Config holds rate limiter configuration. RPS <= 0 disables limiting.
type Config struct {
	RPS   float64
	Burst int
}

// Enabled reports whether c limits anything.
func (c Config) Enabled() bool { return c.RPS > 0 }

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[relay.Platform]*rate.Limiter),
		rps:      r,
		burst:    burst,
	}
}

// Wait blocks until a token is available for platform, respecting the context.
func (l *Limiter) Wait(ctx context.Context, platform relay.Platform) error {
	l.mu.Lock()
	limiter, exists := l.limiters[platform]
	if !exists {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[platform] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	// Immediate grants are not recorded.
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(string(platform), waited)
	}
	return nil
}

// Wrap returns a publisher that takes a token before every publish.
func Wrap(pub relay.Publisher, l *Limiter) relay.Publisher {
	return &throttled{Publisher: pub, limiter: l}
}

type throttled struct {
	relay.Publisher
	limiter *Limiter
}

func (t *throttled) Publish(ctx context.Context, sub relay.Submission) (string, error) {
	if err := t.limiter.Wait(ctx, t.Platform()); err != nil {
		return "", err
	}
	return t.Publisher.Publish(ctx, sub) //nolint:wrapcheck // outcome text comes from the wrapped publisher
}
