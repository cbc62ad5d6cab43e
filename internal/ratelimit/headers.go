package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Hints are the pacing signals a server attaches to a throttle response.
// Zero values mean "not provided"; Remaining uses -1 for unknown.
type Hints struct {
	// Remaining is the quota left in the current window, -1 if unknown.
	Remaining int
	// RetryAfter is how long the server asked us to wait.
	RetryAfter time.Duration
}

// Header spellings vary per vendor; checked in priority order.
var (
	remainingKeys = []string{
		"x-ratelimit-remaining-requests",
		"x-ratelimit-remaining",
		"x-rate-limit-remaining",
		"ratelimit-remaining",
	}
	retryAfterKeys = []string{
		"retry-after",
		"x-ratelimit-reset-requests",
		"x-ratelimit-reset",
		"x-rate-limit-reset",
		"ratelimit-reset",
	}
)

// ParseHints reads rate-limit hints from response headers. Missing or
// malformed headers are ignored; the caller falls back to computed backoff.
func ParseHints(h http.Header) Hints {
	hints := Hints{Remaining: -1}
	if h == nil {
		return hints
	}

	for _, key := range remainingKeys {
		if v := h.Get(key); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
				hints.Remaining = n
				break
			}
		}
	}

	for _, key := range retryAfterKeys {
		if v := h.Get(key); v != "" {
			if d, ok := parseDelay(strings.TrimSpace(v)); ok {
				hints.RetryAfter = d
				break
			}
		}
	}

	return hints
}

// parseDelay interprets a reset/retry hint: plain seconds ("30"), a Unix
// timestamp ("1712345678"), or a compound duration string ("2m59.56s") as
// some providers emit.
func parseDelay(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}

	if n, err := strconv.ParseFloat(v, 64); err == nil {
		if n < 0 {
			return 0, false
		}
		// Large values are epoch timestamps rather than second counts.
		if n > 1e9 {
			until := time.Until(time.Unix(int64(n), 0))
			if until < 0 {
				until = 0
			}
			return until, true
		}
		return time.Duration(n * float64(time.Second)), true
	}

	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d, true
	}

	return 0, false
}
