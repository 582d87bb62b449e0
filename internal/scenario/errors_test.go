package scenario_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"wakutest/internal/convergence"
	"wakutest/internal/lifecycle"
	"wakutest/internal/scenario"
	"wakutest/internal/topology"
	"wakutest/internal/wakuapi"
)

func TestFailureKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"assertion", &scenario.AssertionError{Checkpoint: "x"}, scenario.KindAssertion},
		{"timeout", &convergence.TimeoutError{Attempts: 5}, scenario.KindTimeout},
		{"provision", &lifecycle.ProvisionError{Node: "a", Err: errors.New("x")}, scenario.KindProvision},
		{"network", &topology.NetworkError{Name: "waku", Err: errors.New("x")}, scenario.KindNetwork},
		{"api", &wakuapi.APIError{Status: 400}, scenario.KindAPI},
		{"transport", &wakuapi.TransportError{Err: errors.New("refused")}, scenario.KindTransport},
		{"canceled", context.Canceled, scenario.KindCanceled},
		{"deadline", context.DeadlineExceeded, scenario.KindCanceled},
		{"other", errors.New("boom"), scenario.KindInternal},
		{
			"wrapped provision",
			fmt.Errorf("checkpoint %q: %w", "provision node", &lifecycle.ProvisionError{Node: "a", Err: errors.New("x")}),
			scenario.KindProvision,
		},
		{
			// A provision error that wraps a transport error still counts
			// as provisioning — the outermost domain wins.
			"provision wrapping transport",
			&lifecycle.ProvisionError{Node: "a", Err: &wakuapi.TransportError{Err: errors.New("refused")}},
			scenario.KindProvision,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := scenario.FailureKind(tc.err); got != tc.want {
				t.Errorf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
