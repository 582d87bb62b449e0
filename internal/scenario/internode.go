package scenario

import (
	"context"
	"errors"

	"wakutest"
	"wakutest/internal/convergence"
	"wakutest/internal/topology"
)

// privateTopic is subscribed only on the publishing node; the dependent
// node must never see messages for it.
const privateTopic = "/my-app/2/private-room/proto"

// InterNode verifies cross-node propagation: node A bootstraps the
// network, node B discovers it through A's ENR, and a message published
// on A reaches B's cache for the shared topic — while a topic B never
// subscribed to stays invisible to it.
func InterNode() Scenario {
	return Scenario{Name: "inter-node", Run: runInterNode}
}

func runInterNode(ctx context.Context, o *Orchestrator, stack *Stack) error {
	netw, err := o.networks.Create(ctx, "waku")
	if err != nil {
		return at("create network", err)
	}
	stack.Push("destroy network "+netw.Name, func(ctx context.Context) error {
		return o.networks.Destroy(ctx, netw)
	})

	// Bootstrap node first — its ENR must be known before the dependent
	// node's spec can exist. Port ranges sit above the single-node
	// scenario's so the two never contend for host ports.
	nodeA, cpA, err := o.provisionNode(ctx, stack, "node-a", o.spec(o.opts.PortBase+1000, "172.18.111.226", ""))
	if err != nil {
		return at("provision node-a", err)
	}
	if err := o.attach(ctx, stack, netw, nodeA); err != nil {
		return at("attach node-a", err)
	}
	if err := cpA.Subscribe(ctx, []string{relayTopic}); err != nil {
		return at("subscribe node-a", err)
	}

	nodeB, cpB, err := o.provisionNode(ctx, stack, "node-b", o.spec(o.opts.PortBase+1010, "172.18.111.227", nodeA.ENR))
	if err != nil {
		return at("provision node-b", err)
	}
	if err := o.attach(ctx, stack, netw, nodeB); err != nil {
		return at("attach node-b", err)
	}

	if err := o.poller.Poll(ctx, peerConnected(cpB), o.opts.PeerPolicy); err != nil {
		return at("await peer link", err)
	}

	if err := cpB.Subscribe(ctx, []string{relayTopic}); err != nil {
		return at("subscribe node-b", err)
	}

	content := []byte("Inter-node communication works!")
	if err := cpA.Publish(ctx, wakutest.NewMessage(content, relayTopic)); err != nil {
		return at("publish on node-a", err)
	}
	if err := o.poller.Poll(ctx, messageArrived(cpB, relayTopic, content), o.opts.MessagePolicy); err != nil {
		return at("await propagation", err)
	}

	return o.assertNoLeak(ctx, cpA, cpB)
}

// assertNoLeak publishes on a topic only node A subscribed to and checks
// the message never reaches node B. Here a convergence timeout is the
// passing outcome.
func (o *Orchestrator) assertNoLeak(ctx context.Context, cpA, cpB ControlPlane) error {
	if err := cpA.Subscribe(ctx, []string{privateTopic}); err != nil {
		return at("subscribe private topic", err)
	}
	marker := []byte("stays on node-a")
	if err := cpA.Publish(ctx, wakutest.NewMessage(marker, privateTopic)); err != nil {
		return at("publish private", err)
	}

	leakPolicy := convergence.Policy{
		MaxAttempts: 5,
		Interval:    o.opts.MessagePolicy.Interval,
		Transient:   o.opts.MessagePolicy.Transient,
	}
	err := o.poller.Poll(ctx, messageArrived(cpB, privateTopic, marker), leakPolicy)
	if err == nil {
		return &AssertionError{
			Checkpoint: "unsubscribed topic",
			Detail:     "node-b received a message on a topic it never subscribed to",
		}
	}
	var timeout *convergence.TimeoutError
	if !errors.As(err, &timeout) {
		return at("unsubscribed topic", err)
	}
	return nil
}

// attach connects a node to the scenario network and pushes the matching
// detach, so the network is attachment-free by the time its own destroy
// step unwinds.
func (o *Orchestrator) attach(ctx context.Context, stack *Stack, h *topology.Handle, node *wakutest.RunningNode) error {
	if err := o.networks.Attach(ctx, h, node); err != nil {
		return err
	}
	stack.Push("detach "+node.Name, func(ctx context.Context) error {
		return o.networks.Detach(ctx, h, node)
	})
	return nil
}
