// Package kverrors defines the error taxonomy shared by the MVCC and SST
// layers: Value (caller-visible precondition failure), Internal (invariant
// violation), IO (storage/file error propagated unchanged) and
// Serialization (metadata encode/decode failure). There is no local
// recovery anywhere in the core; every error propagates to the caller.
package kverrors

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error. Kinds are not Go types so callers can compare
// categories without a growing list of sentinel values per message.
type Kind int

const (
	// Unknown marks an error that did not originate from this package.
	Unknown Kind = iota
	// Value is a caller-visible precondition failure, e.g. resuming a
	// transaction that isn't active.
	Value
	// Internal is an invariant violation: an unknown key tag, trailing
	// bytes after decoding, or an unexpected key during an active-set scan.
	Internal
	// IO is an underlying storage or file error, propagated unchanged.
	IO
	// Serialization is a metadata encode/decode failure.
	Serialization
)

func (k Kind) String() string {
	switch k {
	case Value:
		return "value error"
	case Internal:
		return "internal error"
	case IO:
		return "io error"
	case Serialization:
		return "serialization error"
	default:
		return "error"
	}
}

// Error is the single error type used across the core. It carries a Kind
// so callers can branch on category via errors.Is/errors.As, and an
// optional wrapped cause for IO and Serialization errors.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. It lets callers
// write errors.Is(err, kverrors.ErrValue) style checks by comparing against a
// bare-Kind sentinel (see the ErrValue/ErrInternal/ErrIO/ErrSerialization
// vars below).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors carrying only a Kind, for use with errors.Is.
var (
	ErrValue         = &Error{Kind: Value}
	ErrInternal      = &Error{Kind: Internal}
	ErrIO            = &Error{Kind: IO}
	ErrSerialization = &Error{Kind: Serialization}
)

// Valuef builds a Value-kind error with a formatted message.
func Valuef(format string, a ...any) error {
	return &Error{Kind: Value, Msg: fmt.Sprintf(format, a...)}
}

// Internalf builds an Internal-kind error with a formatted message.
func Internalf(format string, a ...any) error {
	return &Error{Kind: Internal, Msg: fmt.Sprintf(format, a...)}
}

// WrapIO builds an IO-kind error wrapping the given cause.
func WrapIO(msg string, err error) error {
	return &Error{Kind: IO, Msg: msg, Err: err}
}

// WrapSerialization builds a Serialization-kind error wrapping the given cause.
func WrapSerialization(msg string, err error) error {
	return &Error{Kind: Serialization, Msg: msg, Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
