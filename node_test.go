package wakutest

import (
	"slices"
	"strings"
	"testing"
)

func TestNodeSpecArgs(t *testing.T) {
	spec := NodeSpec{
		RESTPort:      22161,
		TCPPort:       22162,
		WebsocketPort: 22163,
		Discv5Port:    22164,
		ExternalIP:    "172.18.111.226",
	}

	args := spec.Args()

	for _, want := range []string{
		"--relay=true",
		"--discv5-discovery=true",
		"--rest-port=22161",
		"--tcp-port=22162",
		"--websocket-port=22163",
		"--discv5-udp-port=22164",
		"--nat=extip:172.18.111.226",
	} {
		if !slices.Contains(args, want) {
			t.Errorf("args missing %q", want)
		}
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--discv5-bootstrap-node") {
			t.Errorf("bootstrap flag present without a bootstrap ENR: %q", arg)
		}
	}
}

func TestNodeSpecArgsWithBootstrap(t *testing.T) {
	spec := NodeSpec{ExternalIP: "172.18.111.227", BootstrapENR: "enr:-abc"}
	if !slices.Contains(spec.Args(), "--discv5-bootstrap-node=enr:-abc") {
		t.Error("bootstrap flag missing")
	}
}
