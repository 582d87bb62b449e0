// Package lifecycle provisions and terminates node containers through the
// ContainerRuntime port. It holds no state beyond what RunningNode carries;
// every operation is observable in the runtime itself.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"wakutest"
)

const (
	startInitialInterval = 200 * time.Millisecond
	startMaxInterval     = 2 * time.Second

	// DefaultStartTimeout bounds the wait for a created container to
	// reach running state.
	DefaultStartTimeout = 60 * time.Second
)

// Manager provisions nodes for one test run. Names carry the run id so
// concurrent runs own disjoint containers.
type Manager struct {
	rt           ContainerRuntime
	runID        string
	startTimeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithStartTimeout overrides the bounded wait for running state.
func WithStartTimeout(d time.Duration) Option {
	return func(m *Manager) { m.startTimeout = d }
}

// NewManager creates a Manager that names containers under runID.
func NewManager(rt ContainerRuntime, runID string, opts ...Option) *Manager {
	m := &Manager{
		rt:           rt,
		runID:        runID,
		startTimeout: DefaultStartTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Provision creates and starts a container for spec, waits bounded for it
// to reach running state, and resolves the host-mapped REST port. Any
// failure is reported as a ProvisionError; a container created before the
// failure is removed so a failed provision leaves nothing behind.
func (m *Manager) Provision(ctx context.Context, node string, spec wakutest.NodeSpec) (*wakutest.RunningNode, error) {
	name := ContainerName(m.runID, node)
	slog.Info("provisioning node", "node", node, "container", name, "image", spec.Image)

	id, err := m.rt.ContainerCreate(ctx, CreateConfig{
		Name:  name,
		Image: spec.Image,
		Cmd:   spec.Args(),
		Env:   spec.Env,
		Labels: map[string]string{
			"wakutest.run":  m.runID,
			"wakutest.node": node,
		},
		Ports: portBindings(spec),
	})
	if err != nil {
		return nil, &ProvisionError{Node: node, Err: fmt.Errorf("create container: %w", err)}
	}

	running := &wakutest.RunningNode{Name: name, ContainerID: id, Spec: spec}

	if err := m.rt.ContainerStart(ctx, id); err != nil {
		m.removeQuietly(ctx, running)
		return nil, &ProvisionError{Node: node, Err: fmt.Errorf("start container: %w", err)}
	}

	state, err := m.waitRunning(ctx, id)
	if err != nil {
		m.removeQuietly(ctx, running)
		return nil, &ProvisionError{Node: node, Err: err}
	}

	running.HostRESTPort = state.HostPorts[spec.RESTPort]
	if running.HostRESTPort == 0 {
		// Ports are published 1:1 when the runtime reports no mapping.
		running.HostRESTPort = spec.RESTPort
	}

	slog.Info("node running", "container", name, "rest_port", running.HostRESTPort)
	return running, nil
}

// Terminate stops and removes the node's container. Terminating an
// already-removed node is a no-op, so teardown can call it unconditionally.
func (m *Manager) Terminate(ctx context.Context, node *wakutest.RunningNode) error {
	if node == nil {
		return nil
	}
	if err := m.rt.ContainerStop(ctx, node.ContainerID); err != nil {
		return fmt.Errorf("stop container %q: %w", node.Name, err)
	}
	if err := m.rt.ContainerRemove(ctx, node.ContainerID, true); err != nil {
		return fmt.Errorf("remove container %q: %w", node.Name, err)
	}
	return nil
}

// Sweep removes leftover containers from earlier aborted runs. Errors on
// individual containers are logged and skipped — a stuck leftover must not
// block a fresh run.
func (m *Manager) Sweep(ctx context.Context) error {
	ids, err := m.rt.ContainerList(ctx, NamePrefix+"-")
	if err != nil {
		return fmt.Errorf("list leftover containers: %w", err)
	}
	for _, id := range ids {
		slog.Info("removing leftover container", "id", id)
		if err := m.rt.ContainerStop(ctx, id); err != nil {
			slog.Warn("stop leftover container", "id", id, "err", err)
		}
		if err := m.rt.ContainerRemove(ctx, id, true); err != nil {
			slog.Warn("remove leftover container", "id", id, "err", err)
		}
	}
	return nil
}

// waitRunning polls the container state until it is running, it exits, or
// the start timeout elapses.
func (m *Manager) waitRunning(ctx context.Context, id string) (ContainerState, error) {
	var state ContainerState

	check := func() error {
		var err error
		state, err = m.rt.ContainerInspect(ctx, id)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("inspect container: %w", err))
		}
		if !state.Exists {
			return backoff.Permanent(fmt.Errorf("container disappeared before running"))
		}
		if state.Running {
			return nil
		}
		if state.Status == "exited" || state.Status == "dead" {
			return backoff.Permanent(fmt.Errorf("container exited before running (status %q)", state.Status))
		}
		return fmt.Errorf("container not running yet (status %q)", state.Status)
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(startInitialInterval),
		backoff.WithMaxInterval(startMaxInterval),
		backoff.WithMaxElapsedTime(m.startTimeout),
	)
	if err := backoff.Retry(check, backoff.WithContext(b, ctx)); err != nil {
		return state, fmt.Errorf("wait for running state: %w", err)
	}
	return state, nil
}

func (m *Manager) removeQuietly(ctx context.Context, node *wakutest.RunningNode) {
	if err := m.Terminate(ctx, node); err != nil {
		slog.Warn("cleanup after failed provision", "container", node.Name, "err", err)
	}
}

func portBindings(spec wakutest.NodeSpec) []PortBinding {
	return []PortBinding{
		{ContainerPort: spec.RESTPort, HostPort: spec.RESTPort, Protocol: "tcp"},
		{ContainerPort: spec.TCPPort, HostPort: spec.TCPPort, Protocol: "tcp"},
		{ContainerPort: spec.WebsocketPort, HostPort: spec.WebsocketPort, Protocol: "tcp"},
		{ContainerPort: spec.Discv5Port, HostPort: spec.Discv5Port, Protocol: "udp"},
	}
}
