// Package wakutest holds the shared domain types for the Waku node test
// harness: node specifications, live node handles, and the wire types of
// the node's REST control plane.
//
// Behavior lives in the internal packages — lifecycle provisions nodes,
// topology manages networks, wakuapi talks to the control plane, and
// scenario composes them into runnable test scenarios.
package wakutest

import "strconv"

// DefaultImage is the nwaku release the harness drives unless the
// configuration overrides it.
const DefaultImage = "wakuorg/nwaku:v0.24.0"

// NodeSpec is the immutable configuration for one node instance. It is
// created by a scenario before provisioning and never mutated afterward.
type NodeSpec struct {
	Image string

	// Ports exposed by the node, published 1:1 to the host.
	RESTPort      uint16
	TCPPort       uint16
	WebsocketPort uint16
	Discv5Port    uint16

	// ExternalIP is the static address the node gets on the scenario
	// network, advertised via --nat=extip.
	ExternalIP string

	// BootstrapENR, when set, points the node's discovery at an
	// existing peer.
	BootstrapENR string

	// Env holds extra environment variables, "KEY=VALUE" form.
	Env []string
}

// Args renders the nwaku command line for this spec.
func (s NodeSpec) Args() []string {
	args := []string{
		"--listen-address=0.0.0.0",
		"--rest=true",
		"--rest-admin=true",
		"--rest-address=0.0.0.0",
		"--rest-relay-cache-capacity=100",
		"--websocket-support=true",
		"--peer-exchange=true",
		"--discv5-discovery=true",
		"--relay=true",
		"--log-level=TRACE",
		"--rest-port=" + strconv.Itoa(int(s.RESTPort)),
		"--tcp-port=" + strconv.Itoa(int(s.TCPPort)),
		"--websocket-port=" + strconv.Itoa(int(s.WebsocketPort)),
		"--discv5-udp-port=" + strconv.Itoa(int(s.Discv5Port)),
		"--nat=extip:" + s.ExternalIP,
	}
	if s.BootstrapENR != "" {
		args = append(args, "--discv5-bootstrap-node="+s.BootstrapENR)
	}
	return args
}

// RunningNode is the live handle for a provisioned node. Exactly one
// RunningNode exists per NodeSpec; ownership is exclusive to the scenario
// that created it. The control plane is reachable only between successful
// provisioning and the start of teardown.
type RunningNode struct {
	Name        string
	ContainerID string
	Spec        NodeSpec

	// HostRESTPort is the host-mapped REST port resolved after startup.
	HostRESTPort uint16

	// ENR is the node's own connectable record, read from the info
	// endpoint once the control plane answers. It is consumed as a
	// dependent node's BootstrapENR.
	ENR string
}

// NodeInfo is the response of GET /debug/v1/info.
type NodeInfo struct {
	ENRURI          string   `json:"enrUri"`
	ListenAddresses []string `json:"listenAddresses"`
}

// PeerInfo is one entry of GET /admin/v1/peers.
type PeerInfo struct {
	PeerID    string `json:"peerID"`
	Multiaddr string `json:"multiaddr"`
	Connected bool   `json:"connected"`
}
