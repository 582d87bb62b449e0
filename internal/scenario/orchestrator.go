// Package scenario composes the lifecycle, topology, control-plane, and
// convergence pieces into named test scenarios with a guaranteed-teardown
// execution model.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"wakutest"
	"wakutest/internal/convergence"
	"wakutest/internal/lifecycle"
	"wakutest/internal/topology"
	"wakutest/internal/wakuapi"
)

// DefaultPortBase is the first host port the scenarios allocate from.
const DefaultPortBase = 22161

// Options tune an Orchestrator. Zero values fall back to defaults.
type Options struct {
	// Image overrides the node container image.
	Image string

	// PortBase is the first of the consecutive host ports node specs are
	// built from. Each scenario carves its own non-overlapping range
	// above it.
	PortBase uint16

	// ReadyTimeout bounds the wait for a freshly started node's control
	// plane to answer.
	ReadyTimeout time.Duration

	// PeerPolicy bounds the wait for a peer link to form.
	PeerPolicy convergence.Policy

	// MessagePolicy bounds the wait for a message to propagate.
	MessagePolicy convergence.Policy

	// ScenarioTimeout is the overall ceiling per scenario.
	ScenarioTimeout time.Duration

	// Keep skips teardown so a failed run can be inspected by hand.
	Keep bool
}

func (o Options) withDefaults() Options {
	if o.Image == "" {
		o.Image = wakutest.DefaultImage
	}
	if o.PortBase == 0 {
		o.PortBase = DefaultPortBase
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 30 * time.Second
	}
	if o.PeerPolicy.MaxAttempts <= 0 {
		o.PeerPolicy = convergence.Policy{MaxAttempts: 30, Interval: 2 * time.Second}
	}
	if o.MessagePolicy.MaxAttempts <= 0 {
		o.MessagePolicy = convergence.Policy{MaxAttempts: 15, Interval: time.Second}
	}
	if o.ScenarioTimeout <= 0 {
		o.ScenarioTimeout = 5 * time.Minute
	}
	o.PeerPolicy.Transient = transientProbeError
	o.MessagePolicy.Transient = transientProbeError
	return o
}

// Scenario is one named test: a sequence of orchestration steps returning
// the first checkpoint failure.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, o *Orchestrator, stack *Stack) error
}

// Result is the outcome of one scenario.
type Result struct {
	Name     string
	Err      error
	Kind     string
	Teardown []TeardownError
	Duration time.Duration
}

// Passed reports whether the scenario completed with no failure. Teardown
// errors are reported but do not fail a scenario on their own.
func (r Result) Passed() bool { return r.Err == nil }

// Orchestrator owns the managers a scenario runs against. Runtime clients
// are constructed dependencies, never process-wide singletons, so multiple
// orchestrators can run concurrently against disjoint resources.
type Orchestrator struct {
	nodes    *lifecycle.Manager
	networks *topology.Manager
	clients  ClientFactory
	poller   *convergence.Poller
	opts     Options
}

// New wires an Orchestrator.
func New(nodes *lifecycle.Manager, networks *topology.Manager, clients ClientFactory, poller *convergence.Poller, opts Options) *Orchestrator {
	return &Orchestrator{
		nodes:    nodes,
		networks: networks,
		clients:  clients,
		poller:   poller,
		opts:     opts.withDefaults(),
	}
}

// RunAll executes scenarios sequentially and reports one Result each.
func (o *Orchestrator) RunAll(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, o.runOne(ctx, sc))
	}
	return results
}

// runOne executes a single scenario under its timeout ceiling. The
// teardown stack unwinds on every exit path — normal completion, failure,
// cancellation, or panic — against a context that survives the scenario's
// own cancellation.
func (o *Orchestrator) runOne(ctx context.Context, sc Scenario) (res Result) {
	res.Name = sc.Name
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.opts.ScenarioTimeout)
	defer cancel()

	stack := &Stack{}
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("scenario panicked: %v", p)
		}
		if o.opts.Keep {
			slog.Warn("keeping scenario resources", "scenario", sc.Name, "pending", stack.Len())
		} else {
			res.Teardown = stack.Unwind(context.WithoutCancel(ctx))
		}
		res.Kind = FailureKind(res.Err)
		res.Duration = time.Since(started)
	}()

	slog.Info("scenario starting", "scenario", sc.Name)
	res.Err = sc.Run(ctx, o, stack)
	return res
}

// provisionNode brings up one node, pushes its teardown, waits for the
// control plane to answer, and records the node's ENR.
func (o *Orchestrator) provisionNode(ctx context.Context, stack *Stack, name string, spec wakutest.NodeSpec) (*wakutest.RunningNode, ControlPlane, error) {
	node, err := o.nodes.Provision(ctx, name, spec)
	if err != nil {
		return nil, nil, err
	}
	stack.Push("terminate "+name, func(ctx context.Context) error {
		return o.nodes.Terminate(ctx, node)
	})

	cp := o.clients(node)
	info, err := o.awaitReady(ctx, cp)
	if err != nil {
		return nil, nil, fmt.Errorf("node %q control plane: %w", name, err)
	}
	node.ENR = info.ENRURI
	return node, cp, nil
}

// awaitReady retries the info endpoint until the node's HTTP server
// answers. Transport errors are expected in the startup grace window and
// retried; anything else is permanent.
func (o *Orchestrator) awaitReady(ctx context.Context, cp ControlPlane) (wakutest.NodeInfo, error) {
	var info wakutest.NodeInfo
	check := func() error {
		i, err := cp.Info(ctx)
		if err != nil {
			if wakuapi.IsTransport(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		info = i
		return nil
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(250*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(o.opts.ReadyTimeout),
	)
	if err := backoff.Retry(check, backoff.WithContext(b, ctx)); err != nil {
		return wakutest.NodeInfo{}, fmt.Errorf("not ready after %s: %w", o.opts.ReadyTimeout, err)
	}
	return info, nil
}

// transientProbeError keeps convergence polling alive through transport
// hiccups; API errors and anything else are hard probe failures.
func transientProbeError(err error) bool {
	return wakuapi.IsTransport(err)
}

// at labels an error with the checkpoint it failed.
func at(checkpoint string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("checkpoint %q: %w", checkpoint, err)
}
