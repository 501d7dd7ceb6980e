// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates invalid input. Wrap it to add the field detail.
var ErrValidation = errors.New("validation failed")

// ErrTenantUnavailable is returned by tenant accessors before resolution completes.
var ErrTenantUnavailable = errors.New("tenant not available")

// ErrUnauthorized is returned to the caller of an /api/ request that came back 401
// after the login redirect has been triggered.
var ErrUnauthorized = errors.New("unauthorized, redirecting to login")

// ErrThemeTimeout indicates the theme bundle did not deliver its payload in time.
var ErrThemeTimeout = errors.New("theme bundle timed out")

// ErrThemeCallbackMissing indicates the theme bundle ran but never invoked the callback.
var ErrThemeCallbackMissing = errors.New("theme bundle did not invoke callback")

// APIError is a failed call to the marketplace API.
type APIError struct {
	Status  int    // 0 when the server could not be reached
	Message string // human-readable, derived from Status
	Detail  string // upstream body or transport error, for logs only
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, e.Detail)
}

// NewAPIError builds an APIError with the coarse user-facing message for status.
func NewAPIError(status int, detail string) *APIError {
	return &APIError{Status: status, Message: MessageForStatus(status), Detail: detail}
}

// MessageForStatus maps an HTTP status to the coarse message shown to users.
func MessageForStatus(status int) string {
	switch status {
	case 0:
		return "cannot connect to the server"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusInternalServerError:
		return "server error, please try again later"
	default:
		return "unexpected error"
	}
}
