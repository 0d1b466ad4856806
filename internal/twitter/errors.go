// ABOUTME: Typed error taxonomy for posting operations.
// ABOUTME: Classifies failures so the tool layer can render them appropriately.
package twitter

import (
	"errors"
	"fmt"
)

// Kind classifies a posting failure.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidParameters
	KindAuthentication
	KindRateLimited
	KindInvalidMedia
	KindPlatform
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidParameters:
		return "invalid_parameters"
	case KindAuthentication:
		return "authentication_failure"
	case KindRateLimited:
		return "rate_limit_exceeded"
	case KindInvalidMedia:
		return "invalid_media"
	case KindPlatform:
		return "platform_error"
	default:
		return "internal_error"
	}
}

// Error is a classified posting failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an underlying error with a kind and message.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
