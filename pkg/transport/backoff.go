package transport

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

// Dial retry defaults.
const (
	// DefaultInitialBackoff is the delay after the first failed dial.
	DefaultInitialBackoff = 250 * time.Millisecond

	// DefaultMaxBackoff caps the delay between dials.
	DefaultMaxBackoff = 8 * time.Second

	backoffMultiplier = 2
	backoffJitter     = 0.25
)

// Backoff yields exponentially growing delays, each with up to 25% random
// jitter added. It is not safe for concurrent use.
type Backoff struct {
	initial  time.Duration
	max      time.Duration
	current  time.Duration
	attempts int
}

// NewBackoff creates a backoff starting at initial and capped at max.
// Non-positive values select the defaults.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if max <= 0 {
		max = DefaultMaxBackoff
	}
	if max < initial {
		max = initial
	}
	return &Backoff{initial: initial, max: max, current: initial}
}

// Next returns the next delay and advances the backoff.
func (b *Backoff) Next() time.Duration {
	delay := b.current + time.Duration(float64(b.current)*backoffJitter*rand.Float64())

	b.attempts++
	b.current = min(b.current*backoffMultiplier, b.max)
	return delay
}

// Current returns the next base delay, without jitter.
func (b *Backoff) Current() time.Duration { return b.current }

// Attempts returns how many delays were handed out since the last Reset.
func (b *Backoff) Attempts() int { return b.attempts }

// Reset starts over from the initial delay.
func (b *Backoff) Reset() {
	b.current = b.initial
	b.attempts = 0
}

// DialWithRetry calls Dial up to attempts times, waiting b.Next() between
// failures. It gives up early when ctx is done.
func DialWithRetry(ctx context.Context, remote ipaddr.Endpoint, config DialConfig, attempts int, b *Backoff) (*Conn, error) {
	if attempts < 1 {
		attempts = 1
	}
	if b == nil {
		b = NewBackoff(0, 0)
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := Dial(ctx, remote, config)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		delay := b.Next()
		if config.Logger != nil {
			config.Logger.Debug("dial failed, retrying", "remote", remote.String(), "attempt", i+1, "delay", delay, "error", err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial %s: %w (last error: %v)", remote, ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("dial %s failed after %d attempts: %w", remote, attempts, lastErr)
}
