// Package apperr defines the error taxonomy shared by every layer of verflow.
// This package has no internal dependencies to avoid import cycles.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it.
type Kind string

const (
	// KindNotFound means a content, version, branch or state id is unknown.
	KindNotFound Kind = "not_found"
	// KindInvalidTransition means a workflow transition is not permitted.
	KindInvalidTransition Kind = "invalid_transition"
	// KindConflict means a concurrent writer won a race. Retryable.
	KindConflict Kind = "conflict"
	// KindValidation means the request payload or policy bounds are malformed.
	KindValidation Kind = "validation"
	// KindStorage means a transaction or commit failed and was rolled back.
	KindStorage Kind = "storage"
)

// Error is the concrete error type returned by services and repositories.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "version.create"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrStorage           = &Error{Kind: KindStorage}
)

func newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(op, format string, args ...any) error {
	return newf(KindNotFound, op, format, args...)
}

// InvalidTransition builds a KindInvalidTransition error.
func InvalidTransition(op, format string, args ...any) error {
	return newf(KindInvalidTransition, op, format, args...)
}

// Conflict builds a KindConflict error.
func Conflict(op, format string, args ...any) error {
	return newf(KindConflict, op, format, args...)
}

// Validation builds a KindValidation error.
func Validation(op, format string, args ...any) error {
	return newf(KindValidation, op, format, args...)
}

// Storage wraps a persistence failure.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Msg: "storage failure", Err: err}
}

// Wrap attaches kind and op to err. Errors that already carry a kind keep it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, KindStorage for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConflict
}
