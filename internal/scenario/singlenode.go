package scenario

import (
	"context"

	"wakutest"
)

// relayTopic is the content topic the scenarios exercise.
const relayTopic = "/my-app/2/chatroom-1/proto"

// spec builds a node spec with four consecutive ports starting at base
// (REST, TCP, websocket, discv5).
func (o *Orchestrator) spec(base uint16, ip, bootstrap string) wakutest.NodeSpec {
	return wakutest.NodeSpec{
		Image:         o.opts.Image,
		RESTPort:      base,
		TCPPort:       base + 1,
		WebsocketPort: base + 2,
		Discv5Port:    base + 3,
		ExternalIP:    ip,
		BootstrapENR:  bootstrap,
	}
}

// SingleNode verifies the message round trip on one node: subscribe,
// publish, and poll until the published message shows up in the node's
// own topic cache with byte-equal content.
func SingleNode() Scenario {
	return Scenario{Name: "single-node", Run: runSingleNode}
}

func runSingleNode(ctx context.Context, o *Orchestrator, stack *Stack) error {
	spec := o.spec(o.opts.PortBase, "172.18.111.226", "")
	_, cp, err := o.provisionNode(ctx, stack, "node", spec)
	if err != nil {
		return at("provision node", err)
	}

	if err := cp.Subscribe(ctx, []string{relayTopic}); err != nil {
		return at("subscribe", err)
	}

	content := []byte("Relay works!!")
	if err := cp.Publish(ctx, wakutest.NewMessage(content, relayTopic)); err != nil {
		return at("publish", err)
	}

	// Reading the cache drains it, so capture what the converging read
	// returned and assert on that.
	got, err := o.awaitCached(ctx, cp, relayTopic)
	if err != nil {
		return at("await message", err)
	}
	for _, m := range got {
		if m.ContentEquals(content) {
			return nil
		}
	}
	return &AssertionError{Checkpoint: "message content", Detail: "cached message does not match published content"}
}
