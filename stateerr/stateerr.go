// Package stateerr defines the error taxonomy shared by the byte store, the
// trie and the world-state façade. No exceptions are used for control flow:
// every operation returns an error of one of these kinds, and callers use
// errors.As to recover it.
package stateerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a state-layer failure.
type Kind int

const (
	// KeyNotFound: a required key is absent.
	KeyNotFound Kind = iota
	// DecodeError: stored bytes failed to parse to the expected schema.
	DecodeError
	// IOError: the underlying byte store failed.
	IOError
	// InvariantViolation: a schema-level mismatch was detected.
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KeyNotFound:
		return "key not found"
	case DecodeError:
		return "decode error"
	case IOError:
		return "io error"
	case InvariantViolation:
		return "invariant violation"
	default:
		return "unknown"
	}
}

// Error is the concrete error value returned by state-layer operations.
type Error struct {
	Kind   Kind
	Offset int // byte offset, for DecodeError; -1 if not applicable
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind wrapping cause.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Offset: -1, cause: cause}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: -1, cause: errors.Errorf(format, args...)}
}

// NewDecodeError builds a DecodeError carrying the byte offset where
// decoding failed, when known.
func NewDecodeError(offset int, cause error) *Error {
	return &Error{Kind: DecodeError, Offset: offset, cause: cause}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
