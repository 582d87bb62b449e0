package fake

import (
	"context"
	"sync"

	"wakutest"
	"wakutest/internal/scenario"
	"wakutest/internal/wakuapi"
)

var _ scenario.ControlPlane = (*ControlPlane)(nil)

// ControlPlane is an in-memory node REST surface. Published messages land
// in the publisher's own cache and in every linked peer's cache, but only
// for topics the receiving side subscribed to — mirroring relay behavior
// closely enough for scenario tests.
type ControlPlane struct {
	CallRecorder
	mu    sync.Mutex
	info  wakutest.NodeInfo
	subs  map[string]bool
	store map[string][]wakutest.Message
	peers []wakutest.PeerInfo
	links []*ControlPlane

	InfoErr      func() error
	SubscribeErr error
	PublishErr   error
	MessagesErr  error
	PeersErr     error
}

// NewControlPlane creates a control plane reporting the given node info.
func NewControlPlane(info wakutest.NodeInfo) *ControlPlane {
	return &ControlPlane{
		info:  info,
		subs:  make(map[string]bool),
		store: make(map[string][]wakutest.Message),
	}
}

// Link makes published messages propagate to peer. One-directional; call
// on both ends for a symmetric mesh.
func (c *ControlPlane) Link(peer *ControlPlane) {
	c.mu.Lock()
	c.links = append(c.links, peer)
	c.mu.Unlock()
}

// SetPeers replaces the peer list returned by Peers.
func (c *ControlPlane) SetPeers(peers []wakutest.PeerInfo) {
	c.mu.Lock()
	c.peers = peers
	c.mu.Unlock()
}

func (c *ControlPlane) Info(ctx context.Context) (wakutest.NodeInfo, error) {
	c.record("Info")
	if c.InfoErr != nil {
		if err := c.InfoErr(); err != nil {
			return wakutest.NodeInfo{}, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info, nil
}

func (c *ControlPlane) Subscribe(ctx context.Context, topics []string) error {
	c.record("Subscribe", topics)
	if c.SubscribeErr != nil {
		return c.SubscribeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		c.subs[t] = true
	}
	return nil
}

func (c *ControlPlane) Publish(ctx context.Context, msg wakutest.Message) error {
	c.record("Publish", msg.ContentTopic)
	if c.PublishErr != nil {
		return c.PublishErr
	}
	c.deliver(msg)
	c.mu.Lock()
	links := append([]*ControlPlane(nil), c.links...)
	c.mu.Unlock()
	for _, peer := range links {
		peer.deliver(msg)
	}
	return nil
}

func (c *ControlPlane) Messages(ctx context.Context, topic string) ([]wakutest.Message, error) {
	c.record("Messages", topic)
	if c.MessagesErr != nil {
		return nil, c.MessagesErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.subs[topic] {
		// A node answers 404 for topics it never subscribed to.
		return nil, &wakuapi.APIError{Op: "get messages", Status: 404, Body: "not found"}
	}
	msgs := c.store[topic]
	c.store[topic] = nil
	out := make([]wakutest.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (c *ControlPlane) Peers(ctx context.Context) ([]wakutest.PeerInfo, error) {
	c.record("Peers")
	if c.PeersErr != nil {
		return nil, c.PeersErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wakutest.PeerInfo, len(c.peers))
	copy(out, c.peers)
	return out, nil
}

// deliver stores msg if this side subscribed to its topic.
func (c *ControlPlane) deliver(msg wakutest.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[msg.ContentTopic] {
		c.store[msg.ContentTopic] = append(c.store[msg.ContentTopic], msg)
	}
}
