// Package config loads the harness configuration file.
//
// Config lives in a YAML file (default wakutest.yaml in the working
// directory). Every field has a usable default, so the harness runs with
// no file at all; CLI flags override whatever the file set.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wakutest"
	"wakutest/internal/topology"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "wakutest.yaml"

// Duration unmarshals from YAML strings like "90s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Timeouts bound the waits of a scenario run. Zero values fall back to
// the harness defaults.
type Timeouts struct {
	// Provision bounds the wait for a created container to reach the
	// running state.
	Provision Duration `yaml:"provision,omitempty"`

	// Ready bounds the wait for a running node's REST API to answer.
	Ready Duration `yaml:"ready,omitempty"`

	// Scenario bounds one whole scenario, teardown excluded.
	Scenario Duration `yaml:"scenario,omitempty"`

	// Call bounds a single control-plane HTTP call.
	Call Duration `yaml:"call,omitempty"`
}

// Poll tunes one convergence wait. Zero values fall back to the harness
// defaults.
type Poll struct {
	Attempts int      `yaml:"attempts,omitempty"`
	Interval Duration `yaml:"interval,omitempty"`
}

// Polling holds the per-predicate poll settings.
type Polling struct {
	// Peer is the wait for a peer link to form.
	Peer Poll `yaml:"peer,omitempty"`

	// Message is the wait for a message to propagate.
	Message Poll `yaml:"message,omitempty"`
}

// Config holds the tunable knobs of the harness.
type Config struct {
	// Image is the node image scenarios run.
	Image string `yaml:"image,omitempty"`

	// Subnet is the address range of scenario networks.
	Subnet string `yaml:"subnet,omitempty"`

	// BasePort is the first of the consecutive host ports the scenarios
	// allocate their nodes from.
	BasePort uint16 `yaml:"base-port,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log-level,omitempty"`

	// Keep leaves containers and networks behind after a run, for
	// post-mortem inspection.
	Keep bool `yaml:"keep,omitempty"`

	Timeouts Timeouts `yaml:"timeouts,omitempty"`
	Poll     Polling  `yaml:"poll,omitempty"`
}

// Default returns the configuration the harness uses with no file.
func Default() *Config {
	return &Config{
		Image:    wakutest.DefaultImage,
		Subnet:   topology.DefaultSubnet,
		LogLevel: "info",
	}
}

// Load reads the config at path, or DefaultPath when path is empty. A
// missing file at the default location yields Default(); a missing file
// at an explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if cfg.Image == "" {
		cfg.Image = wakutest.DefaultImage
	}
	if cfg.Subnet == "" {
		cfg.Subnet = topology.DefaultSubnet
	}
	return cfg, nil
}
