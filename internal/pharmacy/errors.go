package pharmacy

import (
	"errors"
	"fmt"
)

type FailureKind int

const (
	KindUnexpected FailureKind = iota
	KindNotFound
	KindInvalidQuantity
	KindMissingJustification
	KindAppointmentRequired
	KindInsufficientStock
	KindInvalidState
	KindConflict
)

func (k FailureKind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidQuantity:
		return "INVALID_QUANTITY"
	case KindMissingJustification:
		return "MISSING_JUSTIFICATION"
	case KindAppointmentRequired:
		return "APPOINTMENT_REQUIRED"
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindInvalidState:
		return "INVALID_STATE"
	case KindConflict:
		return "CONFLICT"
	}
	return "UNEXPECTED"
}

// Error is the structured failure returned by every engine operation.
type Error struct {
	Kind    FailureKind
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

func failf(kind FailureKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func unexpected(msg string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: msg, Err: err}
}

// KindOf extracts the failure kind from err, defaulting to KindUnexpected.
func KindOf(err error) FailureKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
