package scenario_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wakutest"
	"wakutest/internal/adapter/fake"
	"wakutest/internal/convergence"
	"wakutest/internal/lifecycle"
	"wakutest/internal/scenario"
	"wakutest/internal/topology"
)

// harness bundles the orchestrator with the fakes behind it, so tests can
// assert on runtime state after a run.
type harness struct {
	rt   *fake.Runtime
	orch *scenario.Orchestrator
}

// newHarness wires an orchestrator against in-memory fakes. planes maps a
// node-name fragment to the control plane its client factory hands out.
func newHarness(t *testing.T, planes map[string]*fake.ControlPlane, opts scenario.Options) *harness {
	t.Helper()
	rt := fake.NewRuntime()

	factory := func(node *wakutest.RunningNode) scenario.ControlPlane {
		for key, cp := range planes {
			if strings.Contains(node.Name, key) {
				return cp
			}
		}
		t.Fatalf("no control plane wired for node %q", node.Name)
		return nil
	}

	orch := scenario.New(
		lifecycle.NewManager(rt, "test"),
		topology.NewManager(rt, "test", ""),
		factory,
		convergence.New(convergence.WithSleeper(&fake.Sleeper{})),
		opts,
	)
	return &harness{rt: rt, orch: orch}
}

func runOne(t *testing.T, h *harness, sc scenario.Scenario) scenario.Result {
	t.Helper()
	results := h.orch.RunAll(context.Background(), []scenario.Scenario{sc})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	return results[0]
}

func assertNoLeftovers(t *testing.T, rt *fake.Runtime) {
	t.Helper()
	if got := rt.Containers(); len(got) != 0 {
		t.Errorf("containers left behind: %v", got)
	}
	if got := rt.Networks(); len(got) != 0 {
		t.Errorf("networks left behind: %v", got)
	}
}

func TestSingleNodeScenarioPasses(t *testing.T) {
	cp := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node"})
	h := newHarness(t, map[string]*fake.ControlPlane{"node": cp}, scenario.Options{})

	res := runOne(t, h, scenario.SingleNode())

	if !res.Passed() {
		t.Fatalf("scenario failed: %v", res.Err)
	}
	if len(res.Teardown) != 0 {
		t.Errorf("teardown errors: %v", res.Teardown)
	}
	if got := cp.Count("Publish"); got != 1 {
		t.Errorf("Publish called %d times, want 1", got)
	}
	assertNoLeftovers(t, h.rt)
}

func TestInterNodeScenarioPasses(t *testing.T) {
	cpA := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node-a"})
	cpB := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node-b"})
	cpA.Link(cpB)
	cpB.SetPeers([]wakutest.PeerInfo{{PeerID: "16Uiu2", Connected: true}})

	h := newHarness(t, map[string]*fake.ControlPlane{"node-a": cpA, "node-b": cpB}, scenario.Options{})
	res := runOne(t, h, scenario.InterNode())

	if !res.Passed() {
		t.Fatalf("scenario failed: %v", res.Err)
	}
	assertNoLeftovers(t, h.rt)
}

func TestInterNodeDetectsTopicLeak(t *testing.T) {
	cpA := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node-a"})
	cpB := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node-b"})
	cpA.Link(cpB)
	cpB.SetPeers([]wakutest.PeerInfo{{PeerID: "16Uiu2", Connected: true}})

	// Leak: the dependent node is somehow subscribed to the topic that
	// must stay private, so the marker message reaches it.
	if err := cpB.Subscribe(context.Background(), []string{"/my-app/2/private-room/proto"}); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	h := newHarness(t, map[string]*fake.ControlPlane{"node-a": cpA, "node-b": cpB}, scenario.Options{})
	res := runOne(t, h, scenario.InterNode())

	if res.Passed() {
		t.Fatal("scenario passed despite the leaked topic")
	}
	if res.Kind != scenario.KindAssertion {
		t.Errorf("kind = %q, want %q (err %v)", res.Kind, scenario.KindAssertion, res.Err)
	}
	assertNoLeftovers(t, h.rt)
}

func TestInterNodePeerTimeout(t *testing.T) {
	cpA := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node-a"})
	cpB := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node-b"})
	// No peers ever connect.

	h := newHarness(t, map[string]*fake.ControlPlane{"node-a": cpA, "node-b": cpB}, scenario.Options{})
	res := runOne(t, h, scenario.InterNode())

	if res.Passed() {
		t.Fatal("scenario passed without a peer link")
	}
	if res.Kind != scenario.KindTimeout {
		t.Errorf("kind = %q, want %q (err %v)", res.Kind, scenario.KindTimeout, res.Err)
	}
	assertNoLeftovers(t, h.rt)
}

func TestProvisionFailureReleasesEverything(t *testing.T) {
	cpA := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node-a"})
	cpB := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node-b"})
	h := newHarness(t, map[string]*fake.ControlPlane{"node-a": cpA, "node-b": cpB}, scenario.Options{})

	h.rt.ContainerCreateErr = func(cfg lifecycle.CreateConfig) error {
		if strings.Contains(cfg.Name, "node-b") {
			return errors.New("no space left on device")
		}
		return nil
	}

	res := runOne(t, h, scenario.InterNode())

	if res.Passed() {
		t.Fatal("scenario passed despite provision failure")
	}
	if res.Kind != scenario.KindProvision {
		t.Errorf("kind = %q, want %q (err %v)", res.Kind, scenario.KindProvision, res.Err)
	}
	assertNoLeftovers(t, h.rt)
}

func TestScenarioPanicStillUnwinds(t *testing.T) {
	h := newHarness(t, nil, scenario.Options{})

	released := false
	sc := scenario.Scenario{
		Name: "panicking",
		Run: func(ctx context.Context, o *scenario.Orchestrator, stack *scenario.Stack) error {
			stack.Push("release", func(ctx context.Context) error {
				released = true
				return nil
			})
			panic("nil map write")
		},
	}

	res := runOne(t, h, sc)

	if res.Err == nil || !strings.Contains(res.Err.Error(), "panicked") {
		t.Fatalf("err = %v, want panic report", res.Err)
	}
	if !released {
		t.Error("teardown did not run after panic")
	}
}

func TestKeepSkipsTeardown(t *testing.T) {
	cp := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node"})
	h := newHarness(t, map[string]*fake.ControlPlane{"node": cp}, scenario.Options{Keep: true})

	res := runOne(t, h, scenario.SingleNode())

	if !res.Passed() {
		t.Fatalf("scenario failed: %v", res.Err)
	}
	if got := h.rt.Containers(); len(got) != 1 {
		t.Errorf("containers = %v, want the node kept for inspection", got)
	}
}

func TestPortBaseFlowsIntoNodeSpecs(t *testing.T) {
	cp := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node"})
	// Keep the container so its port bindings are still inspectable.
	h := newHarness(t, map[string]*fake.ControlPlane{"node": cp}, scenario.Options{PortBase: 30000, Keep: true})

	res := runOne(t, h, scenario.SingleNode())
	if !res.Passed() {
		t.Fatalf("scenario failed: %v", res.Err)
	}

	ids, err := h.rt.ContainerList(context.Background(), "wakutest-")
	if err != nil || len(ids) != 1 {
		t.Fatalf("ContainerList = %v, %v", ids, err)
	}
	state, err := h.rt.ContainerInspect(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, port := range []uint16{30000, 30001, 30002, 30003} {
		if state.HostPorts[port] != port {
			t.Errorf("port %d not bound: %v", port, state.HostPorts)
		}
	}
}

func TestTeardownErrorsReportedNotFatal(t *testing.T) {
	cp := fake.NewControlPlane(wakutest.NodeInfo{ENRURI: "enr:-node"})
	h := newHarness(t, map[string]*fake.ControlPlane{"node": cp}, scenario.Options{})
	h.rt.ContainerStopErr = func(string) error { return errors.New("device busy") }

	res := runOne(t, h, scenario.SingleNode())

	if !res.Passed() {
		t.Fatalf("teardown failure must not fail the scenario: %v", res.Err)
	}
	if len(res.Teardown) != 1 {
		t.Fatalf("teardown errors = %v, want exactly one", res.Teardown)
	}
}
