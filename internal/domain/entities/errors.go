package entities

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-checkable classification attached to every error
// surfaced by the orchestration layer.
type ErrorKind string

const (
	// Configuration errors
	ErrKindNotConfigured  ErrorKind = "NotConfigured"
	ErrKindInvalidAddress ErrorKind = "InvalidAddress"

	// Session errors
	ErrKindNotConnected        ErrorKind = "NotConnected"
	ErrKindProviderUnavailable ErrorKind = "ProviderUnavailable"
	ErrKindSigningUnsupported  ErrorKind = "SigningUnsupported"
	ErrKindUserRejected        ErrorKind = "UserRejected"
	ErrKindAlreadyConnecting   ErrorKind = "AlreadyConnecting"

	// Input errors
	ErrKindInvalidAmount ErrorKind = "InvalidAmount"

	// Network errors
	ErrKindFetchFailed         ErrorKind = "FetchFailed"
	ErrKindSubmissionFailed    ErrorKind = "SubmissionFailed"
	ErrKindConfirmationTimeout ErrorKind = "ConfirmationTimeout"

	ErrKindUnknown ErrorKind = "Unknown"
)

// Error carries an ErrorKind alongside a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError creates an Error with the given kind and message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error wrapping an underlying cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind so callers can use errors.Is with a bare
// NewError(kind, "") sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the ErrorKind from any error, returning ErrKindUnknown for
// errors produced outside the orchestration layer.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
