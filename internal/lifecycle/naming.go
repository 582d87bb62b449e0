package lifecycle

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// NamePrefix marks every container this harness owns. The pre-run
	// sweep and the list filter key off it.
	NamePrefix = "wakutest"

	runIDRandomBytes    = 2
	containerNameMaxLen = 255
)

// NewRunID generates the random suffix that keeps concurrent and
// successive runs from colliding on container or network names.
func NewRunID() string {
	b := make([]byte, runIDRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%0*x", runIDRandomBytes*2, 0)
	}
	return hex.EncodeToString(b)
}

// ContainerName builds a container name owned by this run.
// Format: wakutest-{runID}-{node}
func ContainerName(runID, node string) string {
	node = truncateNodeName(node, runID)
	return fmt.Sprintf("%s-%s-%s", NamePrefix, runID, node)
}

func truncateNodeName(node, runID string) string {
	fixed := len(NamePrefix) + len(runID) + len("--")
	max := containerNameMaxLen - fixed
	if max <= 0 {
		return ""
	}
	if len(node) > max {
		return node[:max]
	}
	return node
}
