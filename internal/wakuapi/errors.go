package wakuapi

import (
	"errors"
	"fmt"
)

// TransportError is a connection-level failure reaching the node's REST
// API: refused, reset, timed out. It is the retryable class — during the
// startup grace period the poller keeps going through these.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a well-formed non-2xx response. Unlike TransportError it
// usually means the test itself is wrong and is treated as a hard failure.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api status %d: %s", e.Op, e.Status, e.Body)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusOf returns the HTTP status of an APIError in err's chain, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
