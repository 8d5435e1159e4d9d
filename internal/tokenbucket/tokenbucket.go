// Package tokenbucket implements flame's rate limiter and the flow
// scheduler that rewrites it over time.
//
// Capacity and rate are mutable in place so FlowScheduler can rewrite a
// shared bucket without callers needing a new handle; the refill
// mechanics themselves are delegated to golang.org/x/time/rate rather
// than hand-rolled.
package tokenbucket

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is a mutable-in-place rate limiter. The zero value is not
// usable; construct with New or NewUnlimited.
type TokenBucket struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	unlimited bool
	capacity  uint64
	rate      uint64
}

// New returns a bucket with the given capacity (burst size) and refill
// rate in tokens/second. A rate of 0 disables limiting entirely and
// allows every consumption.
func New(capacity, ratePerSecond uint64) *TokenBucket {
	tb := &TokenBucket{}
	tb.reset(capacity, ratePerSecond)
	return tb
}

// NewUnlimited returns the degenerate bucket that permits every
// consumption, used before a flow or fixed rate limit is installed.
func NewUnlimited() *TokenBucket {
	return &TokenBucket{unlimited: true}
}

func (tb *TokenBucket) reset(capacity, ratePerSecond uint64) {
	tb.capacity = capacity
	tb.rate = ratePerSecond
	if ratePerSecond == 0 {
		tb.unlimited = true
		tb.limiter = nil
		return
	}
	tb.unlimited = false
	tb.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), int(capacity))
}

// Set rewrites the bucket's capacity and rate in place. FlowScheduler
// uses this to swap the active flow without callers needing a new handle.
func (tb *TokenBucket) Set(capacity, ratePerSecond uint64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.reset(capacity, ratePerSecond)
}

// Consume attempts to take n tokens. It returns true and deducts them if
// at least n were available after lazily refilling; otherwise it returns
// false and leaves the bucket untouched.
func (tb *TokenBucket) Consume(n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.unlimited {
		return true
	}
	return tb.limiter.AllowN(time.Now(), n)
}

// Snapshot returns the currently configured capacity and rate, mainly
// for tests and metrics echo.
func (tb *TokenBucket) Snapshot() (capacity, ratePerSecond uint64, unlimited bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.capacity, tb.rate, tb.unlimited
}
