package lifecycle

import "context"

// PortBinding publishes one container port on the host.
type PortBinding struct {
	ContainerPort uint16
	HostPort      uint16
	Protocol      string // "tcp" or "udp", defaults to "tcp"
}

// CreateConfig describes a container to create.
type CreateConfig struct {
	Name   string
	Image  string
	Cmd    []string
	Env    []string
	Labels map[string]string
	Ports  []PortBinding
}

// ContainerState is the externally observable state of a container.
type ContainerState struct {
	Exists  bool
	Running bool
	Status  string // runtime status string, e.g. "running", "exited"

	// HostPorts maps container ports to their resolved host ports.
	HostPorts map[uint16]uint16
}

// ContainerRuntime is the container-runtime boundary the manager drives.
// Implementations must make Stop and Remove no-ops for containers that no
// longer exist, so teardown can call them unconditionally.
type ContainerRuntime interface {
	ContainerCreate(ctx context.Context, cfg CreateConfig) (id string, err error)
	ContainerStart(ctx context.Context, id string) error
	ContainerStop(ctx context.Context, id string) error
	ContainerRemove(ctx context.Context, id string, force bool) error
	ContainerInspect(ctx context.Context, id string) (ContainerState, error)

	// ContainerList returns the ids of containers whose name starts
	// with prefix, running or not.
	ContainerList(ctx context.Context, prefix string) ([]string, error)
}
