package dispatch

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RateLimitError reports that the target refused a call because of flood control.
// RetryAfter is the server's hint; zero means no hint was given.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	msg := "rate limited"
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error { return e.Err }

var retryAfterPattern = regexp.MustCompile(`(?i)retry after (\d+)`)

// rateLimitMarkers are substrings of error messages that signal flood control
// when the error carries no structured information.
var rateLimitMarkers = []string{"flood control", "too many requests"}

// RateLimitHint classifies err. It reports whether err is a rate limit and the
// server-suggested wait, if any.
func RateLimitHint(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		if rl.RetryAfter > 0 {
			return rl.RetryAfter, true
		}
		if hint, ok := parseRetryAfter(err.Error()); ok {
			return hint, true
		}
		return 0, true
	}

	msg := err.Error()
	if hint, ok := parseRetryAfter(msg); ok {
		return hint, true
	}
	lower := strings.ToLower(msg)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return 0, true
		}
	}
	return 0, false
}

// parseRetryAfter extracts N seconds from "retry after N".
func parseRetryAfter(msg string) (time.Duration, bool) {
	m := retryAfterPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
