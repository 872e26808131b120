// Package rate provides a token bucket limiter used to throttle download
// bandwidth. Tokens are bytes; a fetcher calls WaitN with the size of the
// chunk it is about to write.
package rate

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a token bucket over bytes per second. A zero or
// negative rate disables throttling entirely.
type Limiter struct {
	bytesPerSec float64
	burst       int64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// New creates a bandwidth limiter. bytesPerSec is the sustained rate;
// burst is the bucket capacity in bytes. When burst is not positive it
// defaults to one second worth of rate.
func New(bytesPerSec float64, burst int64) *Limiter {
	if bytesPerSec <= 0 {
		return &Limiter{}
	}
	if burst <= 0 {
		burst = int64(bytesPerSec)
	}

	return &Limiter{
		bytesPerSec: bytesPerSec,
		burst:       burst,
		tokens:      float64(burst), // start with full bucket
		last:        time.Now(),
	}
}

// Unlimited reports whether the limiter is a no-op.
func (l *Limiter) Unlimited() bool {
	return l.bytesPerSec <= 0
}

// WaitN blocks until n bytes may pass or the context is canceled.
// Requests larger than the burst are satisfied in burst-sized slices so
// a huge chunk cannot deadlock the bucket.
func (l *Limiter) WaitN(ctx context.Context, n int64) error {
	if l.Unlimited() || n <= 0 {
		return nil
	}

	for n > 0 {
		slice := n
		if slice > l.burst {
			slice = l.burst
		}

		if err := l.waitSlice(ctx, slice); err != nil {
			return err
		}
		n -= slice
	}
	return nil
}

// waitSlice blocks for a single slice of at most burst bytes.
func (l *Limiter) waitSlice(ctx context.Context, n int64) error {
	for {
		if l.allow(n) {
			return nil
		}

		wait := l.waitDuration(n)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// allow consumes n tokens if available.
func (l *Limiter) allow(n int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= float64(n) {
		l.tokens -= float64(n)
		return true
	}
	return false
}

// waitDuration estimates how long until n tokens are available.
func (l *Limiter) waitDuration(n int64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	missing := float64(n) - l.tokens
	if missing <= 0 {
		return 0
	}

	d := time.Duration(missing / l.bytesPerSec * float64(time.Second))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// refill adds tokens according to elapsed time. Caller holds the lock.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	l.tokens += elapsed * l.bytesPerSec
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}
}
