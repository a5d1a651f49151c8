package definition

import (
	"math/rand/v2"
	"time"
)

// Backoff is a capped exponential retry schedule for transient conditions
// (inbox full, EOT write contention) that must never surface as errors,
// generalized from the 100ms fixed retry this corpus's reprocessMessage
// idiom uses into a capped exponential series with jitter.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	attempt int
	rng    *rand.Rand
}

// NewBackoff builds a Backoff starting at base and saturating at max.
func NewBackoff(base, max time.Duration, seed uint64) *Backoff {
	return &Backoff{
		Base: base,
		Max:  max,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the next wait duration and advances the internal attempt
// counter.
func (b *Backoff) Next() time.Duration {
	d := b.Base << b.attempt
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	b.attempt++
	jitter := time.Duration(b.rng.Int64N(int64(d) + 1))
	return d/2 + jitter/2
}

// Reset clears the attempt counter after a successful operation.
func (b *Backoff) Reset() {
	b.attempt = 0
}
