package scheduling

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed backend call so callers can route it:
// transport failures are recoverable and generic, auth-required signals
// redirect-to-login rather than a data error, validation blocks only the
// dependent action, hold-invalid triggers the same recovery as a local
// expiry, not-found maps to "missing" on hold hydration.
type ErrorKind string

const (
	KindTransport    ErrorKind = "transport"
	KindAuthRequired ErrorKind = "authRequired"
	KindValidation   ErrorKind = "validation"
	KindHoldInvalid  ErrorKind = "holdInvalid"
	KindNotFound     ErrorKind = "notFound"
)

// APIError is the typed failure every backend call collapses to. Message
// prefers the server-supplied text over a generic fallback.
type APIError struct {
	Kind    ErrorKind
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func kindOf(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

// IsAuthRequired reports whether err signals redirect-to-login.
func IsAuthRequired(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAuthRequired
}

// IsNotFound reports whether err is a missing-resource answer.
func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

// IsHoldInvalid reports whether err means the hold vanished or
// mismatched on a dependent request.
func IsHoldInvalid(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindHoldInvalid
}
