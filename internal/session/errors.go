package session

import (
	"fmt"
)

// Kind classifies a session error.
type Kind int

const (
	KindConfigMissing Kind = iota // client id or redirect URI not configured
	KindAuthDenied                // provider rejected consent
	KindTokenExpired              // token rejected or expired, credentials are cleared
	KindTransientHTTP             // non-2xx response other than 401, or an unreadable payload
	KindNetwork                   // transport failure
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindAuthDenied:
		return "auth_denied"
	case KindTokenExpired:
		return "token_expired"
	case KindTransientHTTP:
		return "transient_http"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is reported to listeners and returned by FetchSnapshot.
//
// Message is meant for display. Err, when set, is the underlying cause.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Fatal reports whether the error ends the session in the Failed state.
// Fatal errors need user action followed by a retry.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindConfigMissing, KindAuthDenied:
		return true
	default:
		return false
	}
}

// Sentinel values for errors.Is checks.
var (
	ErrConfigMissing = &Error{Kind: KindConfigMissing, Message: "missing client ID or redirect URI"}
	ErrAuthDenied    = &Error{Kind: KindAuthDenied, Message: "authentication denied"}
	ErrTokenExpired  = &Error{Kind: KindTokenExpired, Message: "session expired"}
)

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "Network error", Err: err}
}
