package topology

import "fmt"

// NetworkError reports a topology invariant violation or a runtime
// rejection while managing a scenario network.
type NetworkError struct {
	Name string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network %q: %v", e.Name, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
