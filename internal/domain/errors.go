package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the manifest services.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindInvalidTransition   Kind = "invalid_transition"
	KindNotFound            Kind = "not_found"
	KindDuplicateSubmission Kind = "duplicate_submission"
	KindStore               Kind = "store"
	KindNotification        Kind = "notification"
	KindEmptyBatch          Kind = "empty_batch"
	KindUnauthorized        Kind = "unauthorized"
)

// Error carries a Kind alongside a user-facing message.
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

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind returns the classification as a string.
func (e *Error) ErrorKind() string { return string(e.Kind) }

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// ErrNoRows is returned by store adapters when a keyed lookup or conditional
// update matched nothing.
var ErrNoRows = errors.New("no matching rows")

// KindOf extracts the Kind of err, defaulting to KindStore for foreign errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStore
}
