// Package apierr defines the domain-level error kinds shared by the store,
// control plane, distribution engine, and validation service.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is one of the domain error kinds. Transport-level errors (framework
// failures, not admitted by the write path) are not represented here.
type Kind int

const (
	Internal Kind = iota
	InvalidArgument
	NotFound
	Conflict
	ValidationRejected
	CollaboratorUnavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case ValidationRejected:
		return "validation_rejected"
	case CollaboratorUnavailable:
		return "collaborator_unavailable"
	default:
		return "internal"
	}
}

// Error carries a Kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
