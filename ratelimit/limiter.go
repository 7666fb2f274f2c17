// Package ratelimit throttles repeated actions per identifier using fixed windows.
//
// A window opens on the first request for an identifier and lasts for the given
// duration; every request inside it is counted, allowed or not. Because windows are
// fixed rather than sliding, a client can get up to twice the limit through around
// a window boundary. That is accepted.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of a single rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// Limiter is satisfied by every backend.
type Limiter interface {
	Allow(ctx context.Context, identifier string, window time.Duration, maxRequests int) (Result, error)
}

type record struct {
	count     int
	resetTime time.Time
}

// FixedWindow keeps per-identifier counters in process memory.
type FixedWindow struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFixedWindow returns an empty in-memory limiter.
func NewFixedWindow(opts ...Option) *FixedWindow {
	f := &FixedWindow{
		records: make(map[string]*record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check counts one request for identifier and reports whether it fits in the window.
// A non-positive window or limit never allows and leaves no state behind.
func (f *FixedWindow) Check(identifier string, window time.Duration, maxRequests int) Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if window <= 0 || maxRequests <= 0 {
		return Result{Allowed: false, Remaining: 0, ResetTime: now}
	}

	rec, ok := f.records[identifier]
	if !ok || now.After(rec.resetTime) {
		rec = &record{resetTime: now.Add(window)}
		f.records[identifier] = rec
	}
	rec.count++

	remaining := maxRequests - rec.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   rec.count <= maxRequests,
		Remaining: remaining,
		ResetTime: rec.resetTime,
	}
}

// Allow implements Limiter. The in-memory backend never fails.
func (f *FixedWindow) Allow(_ context.Context, identifier string, window time.Duration, maxRequests int) (Result, error) {
	return f.Check(identifier, window, maxRequests), nil
}

// Cleanup drops every record whose window has ended and returns how many were removed.
func (f *FixedWindow) Cleanup() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	removed := 0
	for key, rec := range f.records {
		if now.After(rec.resetTime) {
			delete(f.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}
