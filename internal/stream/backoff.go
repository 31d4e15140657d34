package stream

import "time"

// Backoff tracks the reconnection delay: exponential growth with a ceiling,
// reset to the initial value on a successful connect. It is only touched from
// the manager's event handlers and needs no locking of its own.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff creates a backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = 2 * time.Second
	}
	if max < initial {
		max = initial
	}
	return &Backoff{initial: initial, max: max, current: initial}
}

// Next returns the delay to use for the upcoming reconnection attempt and
// doubles the stored value, capped at the ceiling.
func (b *Backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset restores the initial delay. Called on every successful connect.
func (b *Backoff) Reset() {
	b.current = b.initial
}
