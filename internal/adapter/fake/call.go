// Package fake holds in-memory implementations of the harness ports, so
// orchestration logic is testable without a container runtime or real
// nodes.
package fake

import "sync"

// Call is one recorded invocation of a port method.
type Call struct {
	Method string
	Args   []any
}

// CallRecorder tracks port invocations for interaction assertions:
// idempotence (a detach not repeated), ordering, and argument checks.
type CallRecorder struct {
	mu       sync.Mutex
	order    []Call
	byMethod map[string][]Call
}

func (r *CallRecorder) record(method string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Call{Method: method, Args: args}
	r.order = append(r.order, c)
	if r.byMethod == nil {
		r.byMethod = make(map[string][]Call)
	}
	r.byMethod[method] = append(r.byMethod[method], c)
}

// Calls returns the recorded calls for method, in order. An empty method
// returns every call across methods.
func (r *CallRecorder) Calls(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	src := r.order
	if method != "" {
		src = r.byMethod[method]
	}
	out := make([]Call, len(src))
	copy(out, src)
	return out
}

// Count returns how many times method was invoked.
func (r *CallRecorder) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byMethod[method])
}

// Reset clears all recorded calls.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	r.order = nil
	r.byMethod = nil
	r.mu.Unlock()
}
