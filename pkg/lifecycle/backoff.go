package lifecycle

import (
	"context"
	"math/rand"
	"time"
)

// Backoff produces the delay between reconnection attempts. With a
// multiplier of 1 and no jitter the delay is fixed.
type Backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
	current    time.Duration
}

// NewBackoff creates a backoff starting at initial and growing by multiplier
// up to max. A max below initial is raised to initial; a multiplier below 1
// is treated as 1.
func NewBackoff(initial, max time.Duration, multiplier float64) *Backoff {
	if max < initial {
		max = initial
	}
	if multiplier < 1 {
		multiplier = 1
	}
	return &Backoff{
		initial:    initial,
		max:        max,
		multiplier: multiplier,
		current:    initial,
	}
}

// WithJitter randomizes each delay by ±fraction.
func (b *Backoff) WithJitter(fraction float64) *Backoff {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	b.jitter = fraction
	return b
}

// Next returns the delay to use now and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.current
	if b.jitter > 0 {
		d = time.Duration(float64(d) + float64(d)*b.jitter*(rand.Float64()*2-1))
	}

	// Increase for next time
	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next
	return d
}

// Wait sleeps for the next delay. It returns ctx.Err() if ctx is done first.
func (b *Backoff) Wait(ctx context.Context) error {
	d := b.Next()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset restores the initial delay.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the delay the next call to Next will produce, before jitter.
func (b *Backoff) Current() time.Duration {
	return b.current
}
