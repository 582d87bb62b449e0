package convergence

import "fmt"

// TimeoutError reports a predicate that never converged within its
// attempt budget. LastObserved is the final state snapshot, kept so a
// failing scenario can say what the world looked like when it gave up.
type TimeoutError struct {
	Attempts     int
	LastObserved string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("not converged after %d attempts, last observed: %s", e.Attempts, e.LastObserved)
}
