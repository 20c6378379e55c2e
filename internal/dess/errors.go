package dess

import (
	"errors"
	"fmt"
)

// Sentinel errors for DessMonitor API operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAuth indicates the credentials were rejected by the platform.
	// User intervention is required; automatic retries will not help.
	ErrAuth = errors.New("dess: authentication failed")

	// ErrTransient indicates a failure that is expected to clear on its
	// own: timeout, transport error, 5xx response or an API-level error.
	ErrTransient = errors.New("dess: transient request failure")

	// ErrNoSession indicates an authenticated call was attempted without a
	// valid session and re-login also failed.
	ErrNoSession = errors.New("dess: no valid session")
)

// APIError is an API-level failure reported in the response envelope
// (err != 0 with HTTP 200). It wraps ErrTransient unless the action was
// authSource, in which case it wraps ErrAuth.
type APIError struct {
	Action string
	Code   int
	Desc   string

	sentinel error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dess: %s returned error %d: %s", e.Action, e.Code, e.Desc)
}

func (e *APIError) Unwrap() error {
	return e.sentinel
}

// newAPIError classifies an envelope error by the action that produced it.
func newAPIError(action string, code int, desc string) *APIError {
	sentinel := ErrTransient
	if action == actionAuthSource {
		sentinel = ErrAuth
	}
	return &APIError{
		Action:   action,
		Code:     code,
		Desc:     desc,
		sentinel: sentinel,
	}
}
