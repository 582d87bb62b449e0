package fake

import (
	"context"
	"sync"
	"time"

	"wakutest/internal/convergence"
)

var _ convergence.Sleeper = (*Sleeper)(nil)

// Sleeper records requested delays and returns immediately, so polling
// tests run without wall-clock waits.
type Sleeper struct {
	mu    sync.Mutex
	slept []time.Duration

	Err error
}

func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return s.Err
}

// Slept returns every delay passed to Sleep, in order.
func (s *Sleeper) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}
