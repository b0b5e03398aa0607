package session

import (
	"errors"
	"fmt"

	"github.com/fabricstore/storefront/pkg/apiclient"
	"github.com/fabricstore/storefront/pkg/statemachine"
)

var (
	// ErrInvalidCredential indicates a federated login without a usable credential
	ErrInvalidCredential = errors.New("session.invalid_credential")

	// ErrBadServerResponse indicates a 2xx auth response without identity fields
	ErrBadServerResponse = errors.New("session.bad_server_response")

	// ErrAuthFailed indicates the backend rejected an auth operation
	ErrAuthFailed = errors.New("session.auth_failed")

	// ErrInvalidInput indicates login or register input failed validation
	ErrInvalidInput = errors.New("session.invalid_input")

	// ErrNotReady indicates an operation issued before initialization completed
	ErrNotReady = errors.New("session.not_ready")
)

// TransitionError reports an identity transition the current state forbids.
type TransitionError = statemachine.TransitionError[State, Event]

// AuthError carries the user-facing reason an auth call failed.
// It matches ErrAuthFailed with errors.Is.
type AuthError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

func authFailed(op, fallback string, err error) error {
	authErr := &AuthError{
		Op:      op,
		Message: apiclient.Message(err, fallback),
		Err:     err,
	}
	if apiErr, ok := apiclient.AsError(err); ok {
		authErr.StatusCode = apiErr.StatusCode
	}
	return authErr
}

// Message returns the user-facing text for an auth failure, falling back to
// err.Error() for anything else.
func Message(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
