package ratelimit

import "time"

// Backoff is the retry policy for transient remote failures: up to Attempts
// tries, sleeping Min, 2*Min, 4*Min... capped at Max between them.
type Backoff struct {
	Attempts int
	Min      time.Duration
	Max      time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Attempts: 3, Min: time.Second, Max: 30 * time.Second}
}

// Delay returns the pause after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Min
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

func (b Backoff) MaxAttempts() int {
	if b.Attempts < 1 {
		return 1
	}
	return b.Attempts
}
