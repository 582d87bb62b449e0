package scenario

import (
	"context"
	"log/slog"
)

type releaseStep struct {
	label string
	fn    func(context.Context) error
}

// Stack is the scenario's teardown stack. Every successfully acquired
// resource pushes its release action immediately; the orchestrator unwinds
// the stack in reverse order on every exit path, so a failure halfway
// through provisioning still releases everything acquired before it.
//
// A Stack belongs to one scenario and is only touched by that scenario's
// own sequential control flow.
type Stack struct {
	steps []releaseStep
}

// Push registers a release action. label names the resource for teardown
// diagnostics.
func (s *Stack) Push(label string, fn func(context.Context) error) {
	s.steps = append(s.steps, releaseStep{label: label, fn: fn})
}

// Len returns the number of pending release actions.
func (s *Stack) Len() int { return len(s.steps) }

// Unwind runs all release actions, most recent first, and empties the
// stack. Release errors are logged and collected, never allowed to stop
// the unwind or mask the scenario's own failure.
func (s *Stack) Unwind(ctx context.Context) []TeardownError {
	var failed []TeardownError
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.fn(ctx); err != nil {
			slog.Warn("teardown step failed", "step", step.label, "err", err)
			failed = append(failed, TeardownError{Step: step.label, Err: err})
		}
	}
	s.steps = nil
	return failed
}
