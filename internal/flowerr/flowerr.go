// Package flowerr classifies the failures of canvas gestures.
//
// Every failure carries a Kind from the taxonomy below and a single
// human-readable Message meant for the operator. None of them are retried and
// none of them end the editing session.
package flowerr

import (
	"errors"
	"fmt"
)

// Kind is the failure class.
type Kind int

const (
	// ValidationRejection: the gesture is illegal. No state changed, no call was made.
	ValidationRejection Kind = iota + 1
	// CreateFailure: the backend refused to create the target entity. The
	// optimistic edge was rolled back.
	CreateFailure
	// EdgePersistFailure: the entity exists but the edge could not be stored.
	// The edge was rolled back, the entity stays.
	EdgePersistFailure
	// SecondaryUpdateFailure: a progression link write failed. Edge and
	// entities stay.
	SecondaryUpdateFailure
	// DeleteFailure: the backend refused a delete. Nothing was removed locally.
	DeleteFailure
	// SaveFailure: part of a batched save failed. The failed entries stay dirty.
	SaveFailure
	// TriggerFailure: a bracket generation trigger failed.
	TriggerFailure
)

var kindNames = map[Kind]string{
	ValidationRejection:    "validation_rejection",
	CreateFailure:          "create_failure",
	EdgePersistFailure:     "edge_persist_failure",
	SecondaryUpdateFailure: "secondary_update_failure",
	DeleteFailure:          "delete_failure",
	SaveFailure:            "save_failure",
	TriggerFailure:         "trigger_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified gesture failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "connect" or "delete node".
	Op string
	// Message is shown to the operator.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error without an underlying cause.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an error around a cause.
func Wrap(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Message returns the operator-facing message of err, falling back to the
// error text for unclassified errors.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
