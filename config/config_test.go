package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wakutest"
	"wakutest/config"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Image != wakutest.DefaultImage {
		t.Errorf("Image = %q, want default", cfg.Image)
	}
	if cfg.Subnet != "172.18.0.0/16" {
		t.Errorf("Subnet = %q", cfg.Subnet)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadExplicitMissingFileIsError(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("want error for explicit missing path")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakutest.yaml")
	data := []byte(`
image: wakuorg/nwaku:v0.26.0
base-port: 30000
log-level: debug
keep: true
timeouts:
  provision: 90s
  scenario: 10m
  call: 5s
poll:
  peer:
    attempts: 60
    interval: 500ms
  message:
    attempts: 20
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Image != "wakuorg/nwaku:v0.26.0" {
		t.Errorf("Image = %q", cfg.Image)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if !cfg.Keep {
		t.Error("Keep not set")
	}
	if cfg.Timeouts.Provision.Std() != 90*time.Second {
		t.Errorf("Timeouts.Provision = %v", cfg.Timeouts.Provision)
	}
	if cfg.Timeouts.Scenario.Std() != 10*time.Minute {
		t.Errorf("Timeouts.Scenario = %v", cfg.Timeouts.Scenario)
	}
	if cfg.Timeouts.Call.Std() != 5*time.Second {
		t.Errorf("Timeouts.Call = %v", cfg.Timeouts.Call)
	}
	if cfg.BasePort != 30000 {
		t.Errorf("BasePort = %d", cfg.BasePort)
	}
	if cfg.Poll.Peer.Attempts != 60 || cfg.Poll.Peer.Interval.Std() != 500*time.Millisecond {
		t.Errorf("Poll.Peer = %+v", cfg.Poll.Peer)
	}
	if cfg.Poll.Message.Attempts != 20 {
		t.Errorf("Poll.Message = %+v", cfg.Poll.Message)
	}
	// Unset fields keep their defaults.
	if cfg.Subnet != "172.18.0.0/16" {
		t.Errorf("Subnet = %q, want default", cfg.Subnet)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakutest.yaml")
	if err := os.WriteFile(path, []byte("image: [broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("want parse error")
	}
}
