package acct

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by operations invoked before
	// Initialize has completed.
	ErrNotInitialized = errors.New("account manager not initialized")

	// ErrNotAuthenticated is returned by operations that require an
	// account (e.g. GetAccessToken) when none exists.
	ErrNotAuthenticated = errors.New("no authenticated account")

	// ErrNoExistingAuthFlow is returned by FinishAuthentication when no
	// Begin* call is in flight.
	ErrNoExistingAuthFlow = errors.New("no authentication flow in progress")

	// ErrWrongAuthFlow is returned by FinishAuthentication when the
	// redirect's state does not match the in-flight flow.
	ErrWrongAuthFlow = errors.New("authentication state does not match in-flight flow")

	// ErrClosed is returned by operations on a closed manager.
	ErrClosed = errors.New("account manager closed")
)

// BackendError wraps a failure originating in the underlying account
// library. Op names the operation that failed.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("account backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendErr(op string, err error) error {
	return &BackendError{Op: op, Err: err}
}
