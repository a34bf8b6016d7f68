package price

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// rateLimitTransport turns HTTP 429 responses into a *RateLimitError so the
// caller can stop retrying.
type rateLimitTransport struct {
	next    http.RoundTripper
	onLimit func(retryAfter time.Duration)
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return resp, nil
	}

	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if t.onLimit != nil {
		t.onLimit(retryAfter)
	}
	return nil, &RateLimitError{RetryAfter: retryAfter}
}

// maxRetryAfter caps the cool-down a provider can impose.
const maxRetryAfter = time.Hour

// parseRetryAfter accepts both delay-seconds and HTTP-date forms, capped at
// maxRetryAfter. Anything else yields zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		if secs <= 0 {
			return 0
		}
		if secs >= int64(maxRetryAfter/time.Second) {
			return maxRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return min(d, maxRetryAfter)
		}
	}
	return 0
}
