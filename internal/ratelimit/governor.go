// Package ratelimit enforces per-provider request pacing: a minimum
// inter-request delay, a sliding per-minute request ceiling, and capped
// exponential backoff driven by server rate-limit responses.
//
// One Governor is owned by exactly one external API identity. Sharing a
// Governor across unrelated providers would conflate unrelated quotas.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// window is the span of the sliding request-count window.
const window = time.Minute

// safetyMargin is added when sleeping for a window slot to open, so the
// oldest entry has definitely aged out when we wake.
const safetyMargin = 50 * time.Millisecond

// ErrRetriesExhausted is returned once a request has been throttled
// MaxRetries times in a row. It is fatal to the in-flight request only;
// the governor recovers on the next success.
var ErrRetriesExhausted = errors.New("rate limit exceeded after maximum retries")

// Config configures a Governor.
type Config struct {
	// RequestsPerMinute caps requests in any trailing 60s window (0 = uncapped).
	RequestsPerMinute int
	// MinDelay is the minimum spacing between consecutive requests.
	MinDelay time.Duration
	// BaseBackoff is the first backoff delay after a throttle response.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
	// MaxRetries is the number of consecutive throttle responses tolerated
	// before the in-flight call fails with ErrRetriesExhausted.
	MaxRetries int
}

// DefaultConfig returns conservative defaults suitable for free-tier APIs.
func DefaultConfig() *Config {
	return &Config{
		RequestsPerMinute: 60,
		MinDelay:          200 * time.Millisecond,
		BaseBackoff:       time.Second,
		MaxBackoff:        30 * time.Second,
		MaxRetries:        5,
	}
}

// Governor tracks request timing state for one external API identity.
// All state is mutated only through its methods.
type Governor struct {
	cfg *Config

	mu        sync.Mutex
	last      time.Time   // time of the most recent request
	recent    []time.Time // requests in the trailing window
	failures  int         // consecutive throttle responses
	remaining int         // last remaining-quota hint from headers, -1 unknown

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Governor. A nil config uses DefaultConfig.
func New(cfg *Config) *Governor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Governor{
		cfg:       cfg,
		remaining: -1,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Wait blocks until the governor's policy admits one more request, then
// records it. The sliding window is checked before minimum spacing.
func (g *Governor) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := g.now()
		g.prune(now)

		var wait time.Duration
		if g.cfg.RequestsPerMinute > 0 && len(g.recent) >= g.cfg.RequestsPerMinute {
			// Window full: wait for the oldest entry to age out.
			wait = g.recent[0].Add(window).Sub(now) + safetyMargin
		} else if g.cfg.MinDelay > 0 && !g.last.IsZero() {
			if since := now.Sub(g.last); since < g.cfg.MinDelay {
				wait = g.cfg.MinDelay - since
			}
		}

		if wait <= 0 {
			g.last = now
			g.recent = append(g.recent, now)
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Success clears the consecutive-failure counter.
func (g *Governor) Success() {
	g.mu.Lock()
	g.failures = 0
	g.mu.Unlock()
}

// RateLimited records one throttle response and returns the delay to apply
// before the next attempt. retry is false once MaxRetries consecutive
// throttles have been observed. Server-provided hints override the computed
// backoff when larger.
func (g *Governor) RateLimited(h Hints) (delay time.Duration, retry bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures++
	if h.Remaining >= 0 {
		g.remaining = h.Remaining
	}
	if g.failures > g.cfg.MaxRetries {
		return 0, false
	}

	delay = g.backoff(g.failures)
	if h.RetryAfter > delay {
		delay = h.RetryAfter
	}
	return delay, true
}

// Reset returns the governor to its zero state.
func (g *Governor) Reset() {
	g.mu.Lock()
	g.last = time.Time{}
	g.recent = nil
	g.failures = 0
	g.remaining = -1
	g.mu.Unlock()
}

// Remaining reports the most recent remaining-quota hint, or -1 if the
// server never provided one.
func (g *Governor) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

// backoff computes the capped exponential delay for the given attempt (1-based).
func (g *Governor) backoff(attempt int) time.Duration {
	delay := g.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= g.cfg.MaxBackoff {
			return g.cfg.MaxBackoff
		}
	}
	if delay > g.cfg.MaxBackoff {
		delay = g.cfg.MaxBackoff
	}
	return delay
}

// prune drops window entries older than 60s.
func (g *Governor) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(g.recent) && !g.recent[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.recent = append(g.recent[:0], g.recent[i:]...)
	}
}

// Do runs fn under the governor's policy. Only rate-limit-shaped errors are
// retried; every other error propagates immediately. After MaxRetries
// consecutive throttles the call fails with ErrRetriesExhausted.
func Do(ctx context.Context, g *Governor, fn func(ctx context.Context) error) error {
	for {
		if err := g.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			g.Success()
			return nil
		}
		if !IsThrottle(err) {
			return err
		}

		delay, retry := g.RateLimited(HintsFrom(err))
		if !retry {
			return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
		}
		if err := g.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
