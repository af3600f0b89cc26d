package broadcast

import (
	"errors"
	"fmt"
)

/*

Typed errors surfaced by the gateway. Callers pick UI messaging by type:

  - AuthError: missing or invalid signing credential, expired session
  - CancelledError: the user dismissed the signing dialog; not a failure
  - NetworkError: the broadcast transport failed
  - ValidationError: the operation was rejected before any dispatch

Use errors.As to classify; IsCancelled is a shorthand for the one case that
must never be reported as a hard error.

*/

type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

type CancelledError struct{}

func (e *CancelledError) Error() string {
	return "cancelled by user"
}

type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("broadcast transport failed: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid operation: %s", e.Reason)
}

// IsCancelled reports whether the error is a user cancellation.
func IsCancelled(err error) bool {
	var cancelled *CancelledError
	return errors.As(err, &cancelled)
}
