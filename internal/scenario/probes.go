package scenario

import (
	"context"
	"fmt"
	"net/http"

	"wakutest"
	"wakutest/internal/convergence"
	"wakutest/internal/wakuapi"
)

// peerConnected converges once the node reports at least one connected
// peer.
func peerConnected(cp ControlPlane) convergence.Probe {
	return func(ctx context.Context) (bool, string, error) {
		peers, err := cp.Peers(ctx)
		if err != nil {
			return false, "", err
		}
		connected := 0
		for _, p := range peers {
			if p.Connected {
				connected++
			}
		}
		if connected > 0 {
			return true, fmt.Sprintf("%d peer(s) connected", connected), nil
		}
		return false, fmt.Sprintf("%d peer(s) known, none connected", len(peers)), nil
	}
}

// awaitCached polls the topic cache until it returns at least one
// message, and hands back that batch. The cache drains on read, so the
// batch from the converging read is the only chance to inspect it.
func (o *Orchestrator) awaitCached(ctx context.Context, cp ControlPlane, topic string) ([]wakutest.Message, error) {
	var got []wakutest.Message
	probe := func(ctx context.Context) (bool, string, error) {
		msgs, err := cp.Messages(ctx, topic)
		if err != nil {
			if wakuapi.StatusOf(err) == http.StatusNotFound {
				return false, "topic cache not populated yet", nil
			}
			return false, "", err
		}
		if len(msgs) == 0 {
			return false, "topic cache empty", nil
		}
		got = msgs
		return true, fmt.Sprintf("%d message(s) cached", len(msgs)), nil
	}
	if err := o.poller.Poll(ctx, probe, o.opts.MessagePolicy); err != nil {
		return nil, err
	}
	return got, nil
}

// messageArrived converges once the topic cache holds a message whose
// decoded payload equals content. A 404 means the cache has not seen the
// topic yet — not converged, not an error.
func messageArrived(cp ControlPlane, topic string, content []byte) convergence.Probe {
	return func(ctx context.Context) (bool, string, error) {
		msgs, err := cp.Messages(ctx, topic)
		if err != nil {
			if wakuapi.StatusOf(err) == http.StatusNotFound {
				return false, "topic cache not populated yet", nil
			}
			return false, "", err
		}
		for _, m := range msgs {
			if m.ContentEquals(content) {
				return true, "message present", nil
			}
		}
		return false, fmt.Sprintf("%d message(s) cached, none matching", len(msgs)), nil
	}
}
