// internal/app/system/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failed mutation or query. Every service-level failure is
// one of these; callers branch on Kind, not on message text.
type Kind int

const (
	// KindUnknown wraps unexpected store or infrastructure failures.
	KindUnknown Kind = iota
	// KindNotAuthenticated means no caller identity was supplied.
	KindNotAuthenticated
	// KindPermissionDenied means the caller's role does not allow the action.
	KindPermissionDenied
	// KindNotFound means the referenced entity does not exist.
	KindNotFound
	// KindInvalidInput means a malformed name, email, role, or password.
	KindInvalidInput
	// KindConflict means a state collision: duplicate pending invite,
	// already a member, already (or not) soft-deleted.
	KindConflict
	// KindInvariantViolation means the mutation would break a business
	// invariant, e.g. removing a group's last admin.
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is a typed failure surfaced synchronously to the caller.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap creates an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Convenience constructors, one per kind.

func NotAuthenticated(msg string) *Error   { return New(KindNotAuthenticated, msg) }
func PermissionDenied(msg string) *Error   { return New(KindPermissionDenied, msg) }
func NotFound(msg string) *Error           { return New(KindNotFound, msg) }
func InvalidInput(msg string) *Error       { return New(KindInvalidInput, msg) }
func Conflict(msg string) *Error           { return New(KindConflict, msg) }
func InvariantViolation(msg string) *Error { return New(KindInvariantViolation, msg) }

// KindOf extracts the Kind from err, or KindUnknown when err is not an
// apperr.Error (or nil).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an apperr.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Internal wraps an unexpected failure (store error, encode error) so it
// still flows through the taxonomy without claiming a caller mistake.
func Internal(msg string, err error) *Error {
	return Wrap(KindUnknown, msg, err)
}
