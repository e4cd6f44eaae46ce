package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification. Every *Error matches the sentinel
// of its Kind with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
	ErrConflict   = errors.New("conflict")
	ErrUpstream   = errors.New("upstream failure")
)

// Kind is a coarse-grained categorization for ledger errors.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindPermission Kind = "permission"
	KindConflict   Kind = "conflict"
	KindUpstream   Kind = "upstream"
)

// Reason names the invariant or reference a request violated.
type Reason string

const (
	ReasonInvalidPayer       Reason = "InvalidPayer"
	ReasonNoSplits           Reason = "NoSplits"
	ReasonDuplicateSplitUser Reason = "DuplicateSplitUser"
	ReasonInvalidSplitMember Reason = "InvalidSplitMember"
	ReasonInvalidAmount      Reason = "InvalidAmount"
	ReasonSplitSumMismatch   Reason = "SplitSumMismatch"

	ReasonInvalidRequest Reason = "InvalidRequest"

	ReasonUnknownGroup   Reason = "UnknownGroup"
	ReasonUnknownExpense Reason = "UnknownExpense"
	ReasonUnknownUser    Reason = "UnknownUser"
	ReasonNotMember      Reason = "NotMember"
	ReasonDuplicate      Reason = "Duplicate"
)

// Error wraps an underlying error with operation context, a kind and a reason.
type Error struct {
	Op     string
	Kind   Kind
	Reason Reason
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := string(e.Kind)
	if e.Reason != "" {
		base = string(e.Reason)
	}
	if e.Op != "" {
		base = e.Op + ": " + base
	}
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindNotFound:
		return target == ErrNotFound
	case KindPermission:
		return target == ErrPermission
	case KindConflict:
		return target == ErrConflict
	case KindUpstream:
		return target == ErrUpstream
	}
	return false
}

// IsKind helps callers classify errors without depending on storage packages.
func IsKind(err error, kind Kind) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind == kind
	}
	return false
}

// ReasonOf returns the Reason carried by err, or "" if there is none.
func ReasonOf(err error) Reason {
	var le *Error
	if errors.As(err, &le) {
		return le.Reason
	}
	return ""
}

func validationError(reason Reason, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// Invalid returns a KindValidation error for op, for requests rejected
// before they reach the validator.
func Invalid(op string, reason Reason, format string, args ...any) *Error {
	e := validationError(reason, format, args...)
	e.Op = op
	return e
}

// NotFound returns a KindNotFound error for op.
func NotFound(op string, reason Reason, format string, args ...any) *Error {
	return &Error{Op: op, Kind: KindNotFound, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// Permission returns a KindPermission error for op.
func Permission(op string, format string, args ...any) *Error {
	return &Error{Op: op, Kind: KindPermission, Reason: ReasonNotMember, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error wrapping cause.
func Conflict(op string, cause error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: KindConflict, Reason: ReasonDuplicate, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Upstream returns a KindUpstream error wrapping cause.
func Upstream(op string, cause error) *Error {
	return &Error{Op: op, Kind: KindUpstream, Err: cause}
}
