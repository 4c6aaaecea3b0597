package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError covers everything that can go wrong between client and
// backend: connection failures, timeouts, non-2xx statuses and protocol
// violations. These are surfaced to the user and never auto-retried.
type TransportError struct {
	Op      string
	Status  int
	Detail  string
	Timeout bool
	cause   error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("backend %s: request timed out", e.Op)
	case e.Status != 0:
		return fmt.Sprintf("backend %s: %s (status %d)", e.Op, e.Detail, e.Status)
	default:
		return fmt.Sprintf("backend %s: %s", e.Op, e.Detail)
	}
}

func (e *TransportError) Unwrap() error { return e.cause }

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}

// classify wraps a round-trip failure, flagging deadline expiry so callers
// can surface a timeout-specific message.
func classify(op string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var ne net.Error
	if !timeout && errors.As(err, &ne) && ne.Timeout() {
		timeout = true
	}
	return &TransportError{
		Op:      op,
		Detail:  err.Error(),
		Timeout: timeout,
		cause:   err,
	}
}
