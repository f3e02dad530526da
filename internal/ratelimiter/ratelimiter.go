package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles operation requests per requester using token
// buckets.
//
// Each requester gets an independent bucket, so one chatty agent cannot
// starve the rest of the organization. Buckets are created lazily on first
// use and refill at a constant sustained rate; the burst capacity absorbs
// short spikes above it.
//
// Thread safety: all methods are safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
	disabled bool
}

// New creates a per-requester rate limiter.
//
// requestsPerSecond is the sustained rate per requester and burst the
// bucket capacity. A zero requestsPerSecond disables limiting entirely.
func New(requestsPerSecond, burst uint) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*rate.Limiter),
		perSec:   rate.Limit(requestsPerSecond),
		burst:    int(burst),
		disabled: requestsPerSecond == 0,
	}
}

func (r *RateLimiter) bucket(requesterID string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[requesterID]
	if !ok {
		b = rate.NewLimiter(r.perSec, r.burst)
		r.buckets[requesterID] = b
	}
	return b
}

// Allow reports whether the requester may issue one more request right
// now, consuming a token if so. This is the fast path; it never blocks.
func (r *RateLimiter) Allow(requesterID string) bool {
	if r.disabled {
		return true
	}
	return r.bucket(requesterID).Allow()
}

// Wait blocks until the requester has a token available or the context is
// cancelled.
func (r *RateLimiter) Wait(ctx context.Context, requesterID string) error {
	if r.disabled {
		return ctx.Err()
	}
	return r.bucket(requesterID).Wait(ctx)
}

// Requesters returns how many requesters currently hold a bucket.
func (r *RateLimiter) Requesters() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}
