// Package convergence is the retry-until-predicate engine behind every
// eventually-consistent check in the harness: peer links forming, messages
// propagating. The node's API has no push mechanism, so convergence is
// observed by repeated reads under an explicit retry policy.
package convergence

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxConsecutiveTransport is how many transport failures in a row while
// evaluating a probe escalate from "not yet converged" to "target
// unreachable".
const maxConsecutiveTransport = 3

// Probe evaluates the current observed state. ok reports convergence;
// observed is a human-readable snapshot kept for timeout diagnostics. A
// transient error (per the policy's classifier) counts as a failed
// attempt, not a hard failure.
type Probe func(ctx context.Context) (ok bool, observed string, err error)

// Policy bounds one poll: at most MaxAttempts evaluations, separated by
// the backoff strategy's intervals.
type Policy struct {
	MaxAttempts int

	// Interval is the constant delay between attempts when NewBackoff
	// is not set.
	Interval time.Duration

	// NewBackoff builds the delay strategy for one poll. Factories keep
	// stateful strategies from leaking state across polls.
	NewBackoff func() backoff.BackOff

	// Transient classifies probe errors. Nil treats every error as
	// transient.
	Transient func(error) bool
}

func (p Policy) backoff() backoff.BackOff {
	if p.NewBackoff != nil {
		return p.NewBackoff()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	return backoff.NewConstantBackOff(interval)
}

func (p Policy) transient(err error) bool {
	if p.Transient == nil {
		return true
	}
	return p.Transient(err)
}

// Sleeper is the single suspension point of a poll, injectable so retry
// behavior is testable without real timing.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type ctxSleeper struct{}

func (ctxSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Poller runs probes to convergence.
type Poller struct {
	sleep Sleeper
}

// Option configures a Poller.
type Option func(*Poller)

// WithSleeper replaces the real clock, for tests.
func WithSleeper(s Sleeper) Option {
	return func(p *Poller) { p.sleep = s }
}

// New creates a Poller.
func New(opts ...Option) *Poller {
	p := &Poller{sleep: ctxSleeper{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll evaluates probe until it reports ok, a hard failure occurs, or the
// policy's attempts are exhausted. A probe returning false is expected
// during convergence and never surfaces mid-loop. On exhaustion the
// returned TimeoutError carries the last observed state. Exactly
// MaxAttempts evaluations happen — never fewer, never an unbounded loop.
func (p *Poller) Poll(ctx context.Context, probe Probe, policy Policy) error {
	if policy.MaxAttempts <= 0 {
		return fmt.Errorf("poll: MaxAttempts must be positive, got %d", policy.MaxAttempts)
	}

	b := policy.backoff()
	consecutive := 0
	last := "no state observed"

	for attempt := 1; ; attempt++ {
		ok, observed, err := probe(ctx)
		switch {
		case err != nil && !policy.transient(err):
			return err
		case err != nil:
			consecutive++
			if consecutive >= maxConsecutiveTransport {
				return fmt.Errorf("poll: target unreachable, %d consecutive probe failures: %w", consecutive, err)
			}
			last = "probe failed: " + err.Error()
		case ok:
			return nil
		default:
			consecutive = 0
			if observed != "" {
				last = observed
			}
		}

		if attempt == policy.MaxAttempts {
			return &TimeoutError{Attempts: policy.MaxAttempts, LastObserved: last}
		}

		d := b.NextBackOff()
		if d == backoff.Stop {
			return &TimeoutError{Attempts: attempt, LastObserved: last}
		}
		if err := p.sleep.Sleep(ctx, d); err != nil {
			return err
		}
	}
}
