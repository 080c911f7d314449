package auth

import (
	"errors"
	"fmt"
)

// Kind classifies why an authentication attempt did not produce an identity.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingToken
	KindInvalidToken
	KindTokenExpired
	KindUserNotFound
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindMissingToken:
		return "missing_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindTokenExpired:
		return "token_expired"
	case KindUserNotFound:
		return "user_not_found"
	case KindInfrastructure:
		return "auth_unavailable"
	default:
		return "unknown"
	}
}

// Error is returned by the issuer and the verifier. Match it with errors.Is
// against the sentinels below, or with KindOf.
type Error struct {
	Kind Kind
	Err  error
}

var (
	ErrMissingToken   = &Error{Kind: KindMissingToken}
	ErrInvalidToken   = &Error{Kind: KindInvalidToken}
	ErrTokenExpired   = &Error{Kind: KindTokenExpired}
	ErrUserNotFound   = &Error{Kind: KindUserNotFound}
	ErrInfrastructure = &Error{Kind: KindInfrastructure}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// Retryable reports whether the same request may succeed later. Only store
// failures are retryable; every other kind is a property of the token.
func (e *Error) Retryable() bool {
	return e.Kind == KindInfrastructure
}

// KindOf extracts the Kind from err. Errors that did not come from this
// package are treated as infrastructure failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInfrastructure
}
