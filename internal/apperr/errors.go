package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so handlers can map it to an HTTP status
// without string matching.
type Kind int

const (
	KindNotFound Kind = iota
	KindForbidden
	KindConflict
	KindInvalidTransition
	KindValidation
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: resource + " not found"}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: message}
}

// InvalidTransition names the offending pair so the caller can see exactly
// which edge was rejected.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("illegal status transition from %q to %q", from, to),
	}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, err: err}
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsNotFound(err error) bool          { return is(err, KindNotFound) }
func IsForbidden(err error) bool         { return is(err, KindForbidden) }
func IsConflict(err error) bool          { return is(err, KindConflict) }
func IsInvalidTransition(err error) bool { return is(err, KindInvalidTransition) }
func IsValidation(err error) bool        { return is(err, KindValidation) }

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
