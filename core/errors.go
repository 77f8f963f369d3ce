package core

import "errors"

// Kind classifies a failure surfaced by the auth flow.
type Kind int

const (
	// KindUnexpected covers authority responses the state machine does not
	// recognize and internal failures.
	KindUnexpected Kind = iota

	// KindBadRequest marks input rejected before any authority call.
	KindBadRequest

	// KindUnauthorized covers invalid credentials, invalid or expired
	// tokens, and rejected MFA codes.
	KindUnauthorized

	// KindConflict covers registrations the authority refuses (duplicate
	// user, password policy).
	KindConflict

	// KindTransport marks the authority as unreachable.
	KindTransport
)

// Error is a classified failure with a message safe to surface verbatim.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// BadRequest builds a KindBadRequest error.
func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Unexpected builds a KindUnexpected error.
func Unexpected(msg string) *Error {
	return &Error{Kind: KindUnexpected, Message: msg}
}

// WrapError classifies cause under kind, keeping it unwrappable.
func WrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// KindOf extracts the classification of err. Unclassified errors are
// reported as KindUnexpected so no raw failure escapes the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
