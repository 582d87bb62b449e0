package fake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"wakutest/internal/lifecycle"
	"wakutest/internal/topology"
)

var (
	_ lifecycle.ContainerRuntime = (*Runtime)(nil)
	_ topology.NetworkRuntime    = (*Runtime)(nil)
)

type containerState struct {
	Name    string
	Config  lifecycle.CreateConfig
	Running bool
	Status  string
}

type networkState struct {
	Name     string
	Subnet   string
	Attached map[string]string // container id -> ip
}

// Runtime is an in-memory container runtime. Containers transition
// created -> running on start; host ports resolve to the configured
// bindings. Error hooks inject failures per method.
type Runtime struct {
	CallRecorder
	mu         sync.Mutex
	containers map[string]*containerState // by id
	networks   map[string]*networkState   // by id

	ContainerCreateErr  func(cfg lifecycle.CreateConfig) error
	ContainerStartErr   func(id string) error
	ContainerStopErr    func(id string) error
	ContainerRemoveErr  func(id string) error
	ContainerInspectErr func(id string) error
	NetworkCreateErr    func(name string) error
	NetworkConnectErr   func(networkID, containerID string) error
	NetworkRemoveErr    func(networkID string) error

	// HoldInCreated keeps started containers out of running state, for
	// testing the bounded start wait.
	HoldInCreated bool

	// ExitOnStart makes started containers exit immediately.
	ExitOnStart bool
}

// NewRuntime creates an empty in-memory runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		containers: make(map[string]*containerState),
		networks:   make(map[string]*networkState),
	}
}

func (r *Runtime) ContainerCreate(ctx context.Context, cfg lifecycle.CreateConfig) (string, error) {
	r.record("ContainerCreate", cfg.Name)
	if r.ContainerCreateErr != nil {
		if err := r.ContainerCreateErr(cfg); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := "ctr-" + cfg.Name
	if _, ok := r.containers[id]; ok {
		return "", fmt.Errorf("container name %q already in use", cfg.Name)
	}
	r.containers[id] = &containerState{Name: cfg.Name, Config: cfg, Status: "created"}
	return id, nil
}

func (r *Runtime) ContainerStart(ctx context.Context, id string) error {
	r.record("ContainerStart", id)
	if r.ContainerStartErr != nil {
		if err := r.ContainerStartErr(id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.containers[id]
	if !ok {
		return fmt.Errorf("container %q not found", id)
	}
	switch {
	case r.HoldInCreated:
		// stays "created"
	case r.ExitOnStart:
		cs.Status = "exited"
	default:
		cs.Running = true
		cs.Status = "running"
	}
	return nil
}

func (r *Runtime) ContainerStop(ctx context.Context, id string) error {
	r.record("ContainerStop", id)
	if r.ContainerStopErr != nil {
		if err := r.ContainerStopErr(id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if cs, ok := r.containers[id]; ok {
		cs.Running = false
		cs.Status = "exited"
	}
	return nil
}

func (r *Runtime) ContainerRemove(ctx context.Context, id string, force bool) error {
	r.record("ContainerRemove", id, force)
	if r.ContainerRemoveErr != nil {
		if err := r.ContainerRemoveErr(id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.containers[id]
	if !ok {
		return nil
	}
	if cs.Running && !force {
		return fmt.Errorf("container %q is running, use force to remove", id)
	}
	delete(r.containers, id)
	// Removing a container implicitly detaches it, like the real engine.
	for _, nw := range r.networks {
		delete(nw.Attached, id)
	}
	return nil
}

func (r *Runtime) ContainerInspect(ctx context.Context, id string) (lifecycle.ContainerState, error) {
	r.record("ContainerInspect", id)
	if r.ContainerInspectErr != nil {
		if err := r.ContainerInspectErr(id); err != nil {
			return lifecycle.ContainerState{}, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.containers[id]
	if !ok {
		return lifecycle.ContainerState{Exists: false}, nil
	}
	state := lifecycle.ContainerState{Exists: true, Running: cs.Running, Status: cs.Status}
	if len(cs.Config.Ports) > 0 {
		state.HostPorts = make(map[uint16]uint16, len(cs.Config.Ports))
		for _, p := range cs.Config.Ports {
			state.HostPorts[p.ContainerPort] = p.HostPort
		}
	}
	return state, nil
}

func (r *Runtime) ContainerList(ctx context.Context, prefix string) ([]string, error) {
	r.record("ContainerList", prefix)
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, cs := range r.containers {
		if strings.HasPrefix(cs.Name, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Runtime) NetworkCreate(ctx context.Context, name, subnet string) (string, error) {
	r.record("NetworkCreate", name, subnet)
	if r.NetworkCreateErr != nil {
		if err := r.NetworkCreateErr(name); err != nil {
			return "", err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := "net-" + name
	if _, ok := r.networks[id]; ok {
		return "", fmt.Errorf("network %q already exists", name)
	}
	r.networks[id] = &networkState{Name: name, Subnet: subnet, Attached: make(map[string]string)}
	return id, nil
}

func (r *Runtime) NetworkExists(ctx context.Context, name string) (bool, error) {
	r.record("NetworkExists", name)
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, nw := range r.networks {
		if nw.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *Runtime) NetworkConnect(ctx context.Context, networkID, containerID, ip string) error {
	r.record("NetworkConnect", networkID, containerID, ip)
	if r.NetworkConnectErr != nil {
		if err := r.NetworkConnectErr(networkID, containerID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	nw, ok := r.networks[networkID]
	if !ok {
		return fmt.Errorf("network %q not found", networkID)
	}
	if _, ok := r.containers[containerID]; !ok {
		return fmt.Errorf("container %q not found", containerID)
	}
	nw.Attached[containerID] = ip
	return nil
}

func (r *Runtime) NetworkDisconnect(ctx context.Context, networkID, containerID string) error {
	r.record("NetworkDisconnect", networkID, containerID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if nw, ok := r.networks[networkID]; ok {
		delete(nw.Attached, containerID)
	}
	return nil
}

func (r *Runtime) NetworkRemove(ctx context.Context, networkID string) error {
	r.record("NetworkRemove", networkID)
	if r.NetworkRemoveErr != nil {
		if err := r.NetworkRemoveErr(networkID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	nw, ok := r.networks[networkID]
	if !ok {
		return nil
	}
	if len(nw.Attached) > 0 {
		return fmt.Errorf("network %q has active endpoints", nw.Name)
	}
	delete(r.networks, networkID)
	return nil
}

// Containers returns the names of all existing containers, sorted.
func (r *Runtime) Containers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.containers))
	for _, cs := range r.containers {
		names = append(names, cs.Name)
	}
	sort.Strings(names)
	return names
}

// Networks returns the names of all existing networks, sorted.
func (r *Runtime) Networks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.networks))
	for _, nw := range r.networks {
		names = append(names, nw.Name)
	}
	sort.Strings(names)
	return names
}
