package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyIngests is returned when every ingest slot stays occupied for
// the whole wait period. Clients should retry after a short delay.
var ErrTooManyIngests = errors.New("too many uploads in progress, please try again later")

const (
	// DefaultMaxConcurrentIngests is the default limit for parallel
	// validate, insert and upload operations.
	DefaultMaxConcurrentIngests = 4

	// DefaultMaxWait is how long to wait for a slot before rejecting.
	DefaultMaxWait = 30 * time.Second
)

// IngestLimiter bounds how many spreadsheets are decoded or written at once.
// A decoded workbook lives in memory until its rows are staged, so the
// limit caps peak memory as well as database load.
type IngestLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
	drain  chan struct{} // closed when active drops to zero
}

// NewIngestLimiter allows at most maxConcurrent operations. Callers that
// cannot get a slot within maxWait receive ErrTooManyIngests.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	return &IngestLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, maxWait elapses or ctx ends.
// Every successful Acquire must be paired with Release.
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.enter()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyIngests
	}
}

// Release frees a slot taken by Acquire.
func (l *IngestLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 && l.drain != nil {
		close(l.drain)
		l.drain = nil
	}
	l.mu.Unlock()

	<-l.slots
}

func (l *IngestLimiter) enter() {
	l.mu.Lock()
	l.active++
	l.mu.Unlock()
}

// ActiveCount returns the number of running operations.
func (l *IngestLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *IngestLimiter) MaxConcurrent() int { return cap(l.slots) }

// Available returns the number of free slots.
func (l *IngestLimiter) Available() int { return cap(l.slots) - len(l.slots) }

// WaitForDrain blocks until no operation is running or ctx ends. Used on
// shutdown so in-flight inserts can commit.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	if l.active == 0 {
		l.mu.Unlock()
		return nil
	}
	if l.drain == nil {
		l.drain = make(chan struct{})
	}
	done := l.drain
	l.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LimiterStatus is a snapshot of the limiter for health reporting.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *IngestLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
