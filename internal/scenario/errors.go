package scenario

import (
	"context"
	"errors"
	"fmt"

	"wakutest/internal/convergence"
	"wakutest/internal/lifecycle"
	"wakutest/internal/topology"
	"wakutest/internal/wakuapi"
)

// AssertionError reports observed state diverging from the expected state
// at a checkpoint.
type AssertionError struct {
	Checkpoint string
	Detail     string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed at %q: %s", e.Checkpoint, e.Detail)
}

// TeardownError is one failed release action, reported alongside — never
// instead of — the scenario's own outcome.
type TeardownError struct {
	Step string
	Err  error
}

func (e TeardownError) Error() string {
	return fmt.Sprintf("teardown %q: %v", e.Step, e.Err)
}

// Failure kinds, for the one-line verdict a failing scenario prints.
const (
	KindProvision = "provision"
	KindNetwork   = "network"
	KindTransport = "transport"
	KindAPI       = "api"
	KindTimeout   = "convergence-timeout"
	KindAssertion = "assertion"
	KindCanceled  = "canceled"
	KindInternal  = "internal"
)

// FailureKind classifies a scenario error into the taxonomy above.
func FailureKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		provisionErr *lifecycle.ProvisionError
		networkErr   *topology.NetworkError
		transportErr *wakuapi.TransportError
		apiErr       *wakuapi.APIError
		timeoutErr   *convergence.TimeoutError
		assertErr    *AssertionError
	)
	switch {
	case errors.As(err, &assertErr):
		return KindAssertion
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &provisionErr):
		return KindProvision
	case errors.As(err, &networkErr):
		return KindNetwork
	case errors.As(err, &apiErr):
		return KindAPI
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
