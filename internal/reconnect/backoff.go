// Package reconnect turns a socket's configured "reconnect interval"
// into a capped exponential-with-jitter retry schedule.
package reconnect

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	multiplier    = 2.0
	jitterFactor  = 0.2
	maxIntervalOf = 30 // multiples of the base interval the delay is allowed to grow to
)

// Schedule produces successive reconnect delays for one endpoint. It is
// not safe for concurrent use, but an Endpoint only ever touches its own
// Schedule from the reactor goroutine.
type Schedule struct {
	b *backoff.ExponentialBackOff
}

// NewSchedule builds a Schedule whose first retry waits base and whose
// delay grows exponentially (with jitter) up to maxIntervalOf*base,
// forever — reconnect has no retry-count ceiling, only a per-delay cap,
// since a dead peer may come back at any point in the future.
func NewSchedule(base time.Duration) *Schedule {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.MaxInterval = base * maxIntervalOf
	b.Multiplier = multiplier
	b.RandomizationFactor = jitterFactor
	b.MaxElapsedTime = 0 // never stop retrying
	b.Reset()
	return &Schedule{b: b}
}

// Next returns the delay before the next reconnect attempt and advances
// the schedule.
func (s *Schedule) Next() time.Duration {
	return s.b.NextBackOff()
}

// Reset is called after a successful connect, so the next failure starts
// the backoff over from the base interval rather than continuing to grow.
func (s *Schedule) Reset() {
	s.b.Reset()
}
