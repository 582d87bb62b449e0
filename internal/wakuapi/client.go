// Package wakuapi is the typed HTTP client for a node's REST control
// plane: info, subscriptions, relay messages, and admin peers. The node's
// protocol internals stay opaque — this surface is all the harness sees.
package wakuapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"wakutest"
)

const (
	// DefaultTimeout bounds a single control-plane call.
	DefaultTimeout = 30 * time.Second

	// connRefusedRetryDelay is the pause before the one automatic retry
	// when the container runs but its HTTP server is not up yet.
	connRefusedRetryDelay = 500 * time.Millisecond
)

// Client talks to one node's control plane.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for the control plane at host:port.
func NewClient(host string, port uint16, opts ...Option) *Client {
	c := &Client{
		base:    fmt.Sprintf("http://%s:%d", host, port),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForNode creates a client for a provisioned node's host-mapped REST port.
func ForNode(node *wakutest.RunningNode, opts ...Option) *Client {
	return NewClient("127.0.0.1", node.HostRESTPort, opts...)
}

// Info fetches the node's self record. Some node versions wrap the body
// in {"data": ...}; both shapes are accepted.
func (c *Client) Info(ctx context.Context) (wakutest.NodeInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/debug/v1/info", nil)
	if err != nil {
		return wakutest.NodeInfo{}, err
	}

	var info wakutest.NodeInfo
	if err := json.Unmarshal(body, &info); err == nil && info.ENRURI != "" {
		return info, nil
	}

	var wrapped struct {
		Data wakutest.NodeInfo `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data.ENRURI != "" {
		return wrapped.Data, nil
	}

	return wakutest.NodeInfo{}, fmt.Errorf("get info: unrecognized response body: %s", body)
}

// Subscribe registers the node on the given topics. Resubscribing to an
// already-subscribed topic is not an error on the node side.
func (c *Client) Subscribe(ctx context.Context, topics []string) error {
	_, err := c.do(ctx, http.MethodPost, "/relay/v1/auto/subscriptions", topics)
	return err
}

// Publish sends a message to its content topic.
func (c *Client) Publish(ctx context.Context, msg wakutest.Message) error {
	_, err := c.do(ctx, http.MethodPost, "/relay/v1/auto/messages", msg)
	return err
}

// Messages returns the node's cached messages for a topic, in the order
// the node reports them. No reordering, no deduplication.
func (c *Client) Messages(ctx context.Context, topic string) ([]wakutest.Message, error) {
	body, err := c.do(ctx, http.MethodGet, "/relay/v1/auto/messages/"+url.PathEscape(topic), nil)
	if err != nil {
		return nil, err
	}
	var msgs []wakutest.Message
	if err := json.Unmarshal(body, &msgs); err != nil {
		return nil, fmt.Errorf("parse messages response: %w", err)
	}
	return msgs, nil
}

// Peers returns the node's peer records.
func (c *Client) Peers(ctx context.Context) ([]wakutest.PeerInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/admin/v1/peers", nil)
	if err != nil {
		return nil, err
	}
	var peers []wakutest.PeerInfo
	if err := json.Unmarshal(body, &peers); err != nil {
		return nil, fmt.Errorf("parse peers response: %w", err)
	}
	return peers, nil
}

// do performs one request. Network-level failures come back as
// TransportError, non-2xx responses as APIError. A connection-refused is
// retried exactly once — it covers the window between container-running
// and the HTTP server inside accepting.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	op := method + " " + path

	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("%s: build request: %w", op, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == 0 && errors.Is(err, syscall.ECONNREFUSED) {
				slog.Debug("connection refused, retrying once", "op", op)
				if werr := sleepCtx(ctx, connRefusedRetryDelay); werr != nil {
					return nil, &TransportError{Op: op, Err: err}
				}
				continue
			}
			return nil, &TransportError{Op: op, Err: err}
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", readErr)}
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{Op: op, Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
		}
		return body, nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
