package collector

import (
	"context"
	"time"

	"github.com/google/go-github/v55/github"
)

// RateLimit is the quota snapshot reported by an API response. It is a
// plain value so callers can inspect quota state without sharing mutable
// limiter internals.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Exhausted reports whether the quota is fully consumed.
func (r RateLimit) Exhausted() bool {
	return r.Limit > 0 && r.Remaining <= 0
}

// rateFromResponse reads the quota snapshot off a go-github response.
func rateFromResponse(resp *github.Response) RateLimit {
	if resp == nil {
		return RateLimit{}
	}
	return RateLimit{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		Reset:     resp.Rate.Reset.Time,
	}
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
