// Package topology creates and destroys the isolated bridge network a
// scenario's nodes share, tracking which containers are attached so the
// network is never removed underneath a live node.
package topology

import (
	"context"
	"fmt"
	"log/slog"

	"wakutest"
)

// DefaultSubnet matches the address space the node specs draw their
// static external IPs from.
const DefaultSubnet = "172.18.0.0/16"

// NetworkRuntime is the network slice of the container-runtime boundary.
// Remove and Disconnect must be no-ops for resources that no longer exist.
type NetworkRuntime interface {
	NetworkCreate(ctx context.Context, name, subnet string) (id string, err error)
	NetworkExists(ctx context.Context, name string) (bool, error)
	NetworkConnect(ctx context.Context, networkID, containerID, ip string) error
	NetworkDisconnect(ctx context.Context, networkID, containerID string) error
	NetworkRemove(ctx context.Context, networkID string) error
}

// Handle identifies a created network and the containers attached to it.
// It is owned by a single scenario and accessed sequentially.
type Handle struct {
	ID       string
	Name     string
	attached map[string]struct{}
}

// Attached returns the number of live attachments.
func (h *Handle) Attached() int { return len(h.attached) }

// Manager creates scenario networks named under one run id.
type Manager struct {
	rt     NetworkRuntime
	runID  string
	subnet string
}

// NewManager creates a Manager. An empty subnet falls back to DefaultSubnet.
func NewManager(rt NetworkRuntime, runID, subnet string) *Manager {
	if subnet == "" {
		subnet = DefaultSubnet
	}
	return &Manager{rt: rt, runID: runID, subnet: subnet}
}

// Create provisions an isolated bridge network. The run id suffix keeps
// the name unique per run; an existing network with the same name means a
// collision with a foreign owner and is an error, never reused.
func (m *Manager) Create(ctx context.Context, base string) (*Handle, error) {
	name := fmt.Sprintf("%s-%s", base, m.runID)

	exists, err := m.rt.NetworkExists(ctx, name)
	if err != nil {
		return nil, &NetworkError{Name: name, Err: fmt.Errorf("inspect network: %w", err)}
	}
	if exists {
		return nil, &NetworkError{Name: name, Err: fmt.Errorf("network already exists and is not owned by this run")}
	}

	id, err := m.rt.NetworkCreate(ctx, name, m.subnet)
	if err != nil {
		return nil, &NetworkError{Name: name, Err: fmt.Errorf("create network: %w", err)}
	}
	slog.Info("network created", "network", name, "subnet", m.subnet)
	return &Handle{ID: id, Name: name, attached: make(map[string]struct{})}, nil
}

// Attach connects a node's container to the network at its static
// external IP and records the attachment.
func (m *Manager) Attach(ctx context.Context, h *Handle, node *wakutest.RunningNode) error {
	if err := m.rt.NetworkConnect(ctx, h.ID, node.ContainerID, node.Spec.ExternalIP); err != nil {
		return &NetworkError{Name: h.Name, Err: fmt.Errorf("attach container %q: %w", node.Name, err)}
	}
	h.attached[node.ContainerID] = struct{}{}
	return nil
}

// Detach disconnects a node from the network. Detaching a node that is
// not attached is a no-op.
func (m *Manager) Detach(ctx context.Context, h *Handle, node *wakutest.RunningNode) error {
	if _, ok := h.attached[node.ContainerID]; !ok {
		return nil
	}
	if err := m.rt.NetworkDisconnect(ctx, h.ID, node.ContainerID); err != nil {
		return &NetworkError{Name: h.Name, Err: fmt.Errorf("detach container %q: %w", node.Name, err)}
	}
	delete(h.attached, node.ContainerID)
	return nil
}

// Destroy removes the network. It refuses while attachments remain — the
// caller must detach or terminate every node first.
func (m *Manager) Destroy(ctx context.Context, h *Handle) error {
	if n := h.Attached(); n > 0 {
		return &NetworkError{Name: h.Name, Err: fmt.Errorf("%d container(s) still attached", n)}
	}
	if err := m.rt.NetworkRemove(ctx, h.ID); err != nil {
		return &NetworkError{Name: h.Name, Err: fmt.Errorf("remove network: %w", err)}
	}
	slog.Info("network removed", "network", h.Name)
	return nil
}
