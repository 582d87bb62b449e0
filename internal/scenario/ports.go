package scenario

import (
	"context"

	"wakutest"
)

// ControlPlane is the node REST surface the orchestrator drives. The real
// implementation is wakuapi.Client; tests substitute an in-memory fake.
type ControlPlane interface {
	Info(ctx context.Context) (wakutest.NodeInfo, error)
	Subscribe(ctx context.Context, topics []string) error
	Publish(ctx context.Context, msg wakutest.Message) error
	Messages(ctx context.Context, topic string) ([]wakutest.Message, error)
	Peers(ctx context.Context) ([]wakutest.PeerInfo, error)
}

// ClientFactory builds a control-plane client for a provisioned node.
type ClientFactory func(node *wakutest.RunningNode) ControlPlane
