// Package docker implements the harness runtime ports against the Docker
// Engine API.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	dockerfilters "github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"wakutest/internal/lifecycle"
	"wakutest/internal/topology"
)

var (
	_ lifecycle.ContainerRuntime = (*Runtime)(nil)
	_ topology.NetworkRuntime    = (*Runtime)(nil)
)

// Runtime drives containers and networks through a Docker client. It
// holds no state of its own — everything it manages is observable in the
// engine.
type Runtime struct {
	cli *client.Client
}

// NewRuntime creates a Runtime with a Docker client from the environment.
func NewRuntime() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

// NewRuntimeFromClient wraps an existing Docker client.
func NewRuntimeFromClient(cli *client.Client) *Runtime {
	return &Runtime{cli: cli}
}

func (r *Runtime) Close() error {
	return r.cli.Close()
}

func (r *Runtime) ContainerCreate(ctx context.Context, cfg lifecycle.CreateConfig) (string, error) {
	cc := &container.Config{
		Image:  cfg.Image,
		Cmd:    cfg.Cmd,
		Env:    cfg.Env,
		Labels: cfg.Labels,
	}
	hc := &container.HostConfig{}

	if len(cfg.Ports) > 0 {
		exposed := make(nat.PortSet, len(cfg.Ports))
		bindings := make(nat.PortMap, len(cfg.Ports))
		for _, p := range cfg.Ports {
			proto := strings.ToLower(strings.TrimSpace(p.Protocol))
			if proto == "" {
				proto = "tcp"
			}
			port := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, proto))
			exposed[port] = struct{}{}
			bindings[port] = []nat.PortBinding{{HostPort: strconv.Itoa(int(p.HostPort))}}
		}
		cc.ExposedPorts = exposed
		hc.PortBindings = bindings
	}

	resp, err := r.cli.ContainerCreate(ctx, cc, hc, nil, nil, cfg.Name)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			return "", fmt.Errorf("create container %q: %w", cfg.Name, err)
		}
		// Image missing locally — pull and retry the create once. The
		// engine handles registry retries itself.
		if err := r.pullImage(ctx, cfg.Image); err != nil {
			return "", err
		}
		if resp, err = r.cli.ContainerCreate(ctx, cc, hc, nil, nil, cfg.Name); err != nil {
			return "", fmt.Errorf("create container %q after pull: %w", cfg.Name, err)
		}
	}
	return resp.ID, nil
}

func (r *Runtime) ContainerStart(ctx context.Context, id string) error {
	if err := r.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %q: %w", id, err)
	}
	return nil
}

func (r *Runtime) ContainerStop(ctx context.Context, id string) error {
	if err := r.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("stop container %q: %w", id, err)
	}
	return nil
}

func (r *Runtime) ContainerRemove(ctx context.Context, id string, force bool) error {
	opts := container.RemoveOptions{Force: force, RemoveVolumes: true}
	if err := r.cli.ContainerRemove(ctx, id, opts); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %q: %w", id, err)
	}
	return nil
}

func (r *Runtime) ContainerInspect(ctx context.Context, id string) (lifecycle.ContainerState, error) {
	info, err := r.cli.ContainerInspect(ctx, id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return lifecycle.ContainerState{Exists: false}, nil
		}
		return lifecycle.ContainerState{}, fmt.Errorf("inspect container %q: %w", id, err)
	}

	state := lifecycle.ContainerState{Exists: true}
	if info.State != nil {
		state.Running = info.State.Running
		state.Status = info.State.Status
	}
	if info.NetworkSettings != nil {
		state.HostPorts = hostPorts(info.NetworkSettings.Ports)
	}
	return state, nil
}

func (r *Runtime) ContainerList(ctx context.Context, prefix string) ([]string, error) {
	filters := dockerfilters.NewArgs()
	filters.Add("name", prefix)

	containers, err := r.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	var ids []string
	for _, c := range containers {
		// The name filter matches substrings; keep true prefixes only.
		for _, name := range c.Names {
			if strings.HasPrefix(strings.TrimPrefix(name, "/"), prefix) {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids, nil
}

func (r *Runtime) NetworkCreate(ctx context.Context, name, subnet string) (string, error) {
	resp, err := r.cli.NetworkCreate(ctx, name, dockernetwork.CreateOptions{
		Driver: "bridge",
		Scope:  "local",
		IPAM:   &dockernetwork.IPAM{Config: []dockernetwork.IPAMConfig{{Subnet: subnet}}},
	})
	if err != nil {
		return "", fmt.Errorf("create network %q: %w", name, err)
	}
	return resp.ID, nil
}

func (r *Runtime) NetworkExists(ctx context.Context, name string) (bool, error) {
	_, err := r.cli.NetworkInspect(ctx, name, dockernetwork.InspectOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("inspect network %q: %w", name, err)
	}
	return true, nil
}

func (r *Runtime) NetworkConnect(ctx context.Context, networkID, containerID, ip string) error {
	settings := &dockernetwork.EndpointSettings{}
	if ip != "" {
		settings.IPAMConfig = &dockernetwork.EndpointIPAMConfig{IPv4Address: ip}
	}
	if err := r.cli.NetworkConnect(ctx, networkID, containerID, settings); err != nil {
		return fmt.Errorf("connect container %q to network %q: %w", containerID, networkID, err)
	}
	return nil
}

func (r *Runtime) NetworkDisconnect(ctx context.Context, networkID, containerID string) error {
	if err := r.cli.NetworkDisconnect(ctx, networkID, containerID, true); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("disconnect container %q from network %q: %w", containerID, networkID, err)
	}
	return nil
}

func (r *Runtime) NetworkRemove(ctx context.Context, networkID string) error {
	if err := r.cli.NetworkRemove(ctx, networkID); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove network %q: %w", networkID, err)
	}
	return nil
}

func (r *Runtime) pullImage(ctx context.Context, img string) error {
	slog.Info("pulling image", "image", img)
	pull, err := r.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %q: %w", img, err)
	}
	defer pull.Close()
	// Drain the pull output to completion.
	if _, err := io.Copy(io.Discard, pull); err != nil {
		return fmt.Errorf("pull image %q: read response: %w", img, err)
	}
	return nil
}

func hostPorts(ports nat.PortMap) map[uint16]uint16 {
	if len(ports) == 0 {
		return nil
	}
	out := make(map[uint16]uint16, len(ports))
	for port, bindings := range ports {
		if len(bindings) == 0 {
			continue
		}
		host, err := strconv.ParseUint(bindings[0].HostPort, 10, 16)
		if err != nil {
			continue
		}
		out[uint16(port.Int())] = uint16(host)
	}
	return out
}
