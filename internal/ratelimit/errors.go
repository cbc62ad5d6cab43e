package ratelimit

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a throttle response from a provider, carrying whatever pacing
// hints the server included. Clients construct it at the call site (HTTP
// 429, provider-specific throttle codes) so Do can react to it.
type Error struct {
	Provider string
	Status   int
	Hints    Hints
	Message  string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: rate limited (%d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: rate limited (%d)", e.Provider, e.Status)
}

// IsThrottle reports whether err looks like a rate-limit signal: either a
// *ratelimit.Error or an opaque SDK error whose text carries one of the
// usual throttle markers. Daily-quota exhaustion is excluded; waiting will
// not clear it within a request's lifetime.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}
	var rl *Error
	if errors.As(err, &rl) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "tokens per day") || strings.Contains(msg, "tpd") {
		return false
	}
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}

// HintsFrom extracts server hints from a throttle error, or zero hints when
// the error carries none.
func HintsFrom(err error) Hints {
	var rl *Error
	if errors.As(err, &rl) {
		return rl.Hints
	}
	return Hints{Remaining: -1}
}
