package convergence

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Constant returns a factory for fixed-interval delays.
func Constant(interval time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.NewConstantBackOff(interval)
	}
}

// Linear returns a factory for delays growing by step each attempt,
// capped at max.
func Linear(step, max time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		return &linearBackOff{step: step, max: max}
	}
}

// Exponential returns a factory for exponentially growing delays capped
// at max. The strategy itself never gives up — attempt bounding is the
// policy's job.
func Exponential(initial, max time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(initial),
			backoff.WithMaxInterval(max),
			backoff.WithMaxElapsedTime(0),
		)
	}
}

type linearBackOff struct {
	step    time.Duration
	max     time.Duration
	current time.Duration
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.current += l.step
	if l.current > l.max {
		l.current = l.max
	}
	return l.current
}

func (l *linearBackOff) Reset() { l.current = 0 }
