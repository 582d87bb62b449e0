package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/client"
)

// WaitReady blocks until the Docker daemon answers pings. Connection
// failures are retried; any other error is surfaced immediately.
func (r *Runtime) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if _, err := r.cli.Ping(ctx); err == nil {
			return nil
		} else if !client.IsErrConnectionFailed(err) {
			return fmt.Errorf("connect to docker daemon: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
