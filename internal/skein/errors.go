package skein

import (
	"errors"
	"fmt"
)

// InvariantCode categorizes invariant violations.
type InvariantCode string

const (
	// ErrCodeUnexpectedState: a non-root knot has neither response nor unblessed.
	ErrCodeUnexpectedState InvariantCode = "UNEXPECTED_STATE"

	// ErrCodeMissingParent: an update names a parent that is not in the store.
	ErrCodeMissingParent InvariantCode = "MISSING_PARENT"

	// ErrCodeInvalidParent: the root has a parent, or a non-root knot has none.
	ErrCodeInvalidParent InvariantCode = "INVALID_PARENT"

	// ErrCodeUnknownRemoval: a removed id is not in the store.
	ErrCodeUnknownRemoval InvariantCode = "UNKNOWN_REMOVAL"

	// ErrCodeDanglingChild: a children entry names a knot not in the store.
	ErrCodeDanglingChild InvariantCode = "DANGLING_CHILD"

	// ErrCodeParentMismatch: a children entry names a knot with another parent.
	ErrCodeParentMismatch InvariantCode = "PARENT_MISMATCH"

	// ErrCodeInvalidSelection: selected is not one of the knot's children.
	ErrCodeInvalidSelection InvariantCode = "INVALID_SELECTION"

	// ErrCodeCycleDetected: a parent or selected walk exceeded the store size.
	ErrCodeCycleDetected InvariantCode = "CYCLE_DETECTED"
)

// InvariantError reports a knot that breaks one of the tree invariants.
type InvariantError struct {
	// Code identifies the violation.
	Code InvariantCode

	// KnotID is the knot the violation was found on.
	KnotID int64

	// RelatedID is the other knot involved (parent, child, or selection), if any.
	RelatedID *int64

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.RelatedID != nil {
		return fmt.Sprintf("%s: %s (knot=%d, related=%d)", e.Code, e.Message, e.KnotID, *e.RelatedID)
	}
	return fmt.Sprintf("%s: %s (knot=%d)", e.Code, e.Message, e.KnotID)
}

func newInvariantError(code InvariantCode, knotID int64, related *int64, format string, args ...any) *InvariantError {
	var rel *int64
	if related != nil {
		v := *related
		rel = &v
	}
	return &InvariantError{
		Code:      code,
		KnotID:    knotID,
		RelatedID: rel,
		Message:   fmt.Sprintf(format, args...),
	}
}

// HasCode reports whether err (or anything it wraps or joins) is an
// *InvariantError with the given code.
func HasCode(err error, code InvariantCode) bool {
	if err == nil {
		return false
	}
	var ie *InvariantError
	if errors.As(err, &ie) && ie.Code == code {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	}
	return false
}

// IsUnexpectedState returns true if err reports a knot with neither
// response nor unblessed text.
func IsUnexpectedState(err error) bool {
	return HasCode(err, ErrCodeUnexpectedState)
}

// IsCycle returns true if err reports a walk that exceeded the store size.
func IsCycle(err error) bool {
	return HasCode(err, ErrCodeCycleDetected)
}

// InvariantErrors flattens err (possibly joined) into its *InvariantError parts.
func InvariantErrors(err error) []*InvariantError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*InvariantError
		for _, e := range joined.Unwrap() {
			out = append(out, InvariantErrors(e)...)
		}
		return out
	}
	var ie *InvariantError
	if errors.As(err, &ie) {
		return []*InvariantError{ie}
	}
	return nil
}
