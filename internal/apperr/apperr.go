package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can decide between retrying,
// surfacing to the user, or forcing a sign-out.
type Kind int

const (
	// KindTransport covers network and timeout failures. Retryable.
	KindTransport Kind = iota
	// KindValidation covers malformed writes, including duplicate unique
	// facts. Not retryable; surfaced to the user.
	KindValidation
	// KindAuth covers an expired or missing session. Triggers sign-out.
	KindAuth
	// KindNotFound covers stale references, e.g. liking a deleted post.
	KindNotFound
	// KindConflict covers writes rejected because the fact already exists.
	KindConflict
	// KindInternal is everything else.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the application error carried across the client core.
type Error struct {
	Kind    Kind
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

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap annotates an existing error with a kind and message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsRetryable reports whether a retry could plausibly succeed. Only
// transport failures qualify; everything else is deterministic.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransport
}

// FromStatus maps an HTTP response status to an error kind.
func FromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindTransport
	}
}

// StatusOf maps an error kind back to an HTTP status, used by the devstack.
func StatusOf(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
