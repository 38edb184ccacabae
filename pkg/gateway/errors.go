package gateway

import (
	"fmt"
	"time"
)

// RegistrationError reports a failed tool-server activation. It always
// carries the server name; already-active connections are unaffected.
type RegistrationError struct {
	Server string
	Err    error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("gateway: failed to register server %q: %v", e.Server, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a call to a capability no active connection owns.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("gateway: no active server owns %q", e.Name)
}

// TimeoutError reports an elapsed per-call or per-registration timeout.
// Distinguished from other failures so callers can decide to retry.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gateway: %q timed out after %v", e.Name, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
