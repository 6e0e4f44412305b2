package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed backend operation. There is exactly one kind
// per operation and no finer classification is exposed.
type ErrorKind string

const (
	KindAuth         ErrorKind = "AuthError"
	KindRegistration ErrorKind = "RegistrationError"
	KindFetch        ErrorKind = "FetchError"
	KindCreate       ErrorKind = "CreateError"
	KindToggle       ErrorKind = "ToggleError"
	KindPairing      ErrorKind = "PairingError"
)

// Sentinels matched through errors.Is against an *OpError of the same kind.
var (
	ErrAuth         = &OpError{Kind: KindAuth}
	ErrRegistration = &OpError{Kind: KindRegistration}
	ErrFetch        = &OpError{Kind: KindFetch}
	ErrCreate       = &OpError{Kind: KindCreate}
	ErrToggle       = &OpError{Kind: KindToggle}
	ErrPairing      = &OpError{Kind: KindPairing}
)

var (
	// ErrNotAuthenticated is wrapped by an OpError when an operation that
	// needs a credential is attempted without one. No request is sent.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEmptyName is wrapped by a CreateError when the instance name is blank.
	ErrEmptyName = errors.New("instance name must not be empty")
)

// OpError is the failure of a single backend operation. Status carries the
// HTTP status for logs (0 for transport or local failures).
type OpError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

// Error implements error.
func (e *OpError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Kind, e.Status)
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error { return e.Err }

// Is matches any *OpError with the same Kind, so callers can write
// errors.Is(err, model.ErrCreate).
func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first OpError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}
