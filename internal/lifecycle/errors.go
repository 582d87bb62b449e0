package lifecycle

import "fmt"

// ProvisionError reports a container that could not be brought to a
// running state: the runtime rejected creation, the image never became
// available, or the container exited before running.
type ProvisionError struct {
	Node string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision node %q: %v", e.Node, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
