package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrSourceUnavailable  = errors.New("catalog source unavailable")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Redirect targets handed back with precondition failures and logins.
// The shell navigates to these to resolve the missing precondition.
const (
	RedirectLogin       = "/login"
	RedirectProfileEdit = "/profile/edit"
	RedirectCart        = "/cart"
	RedirectCheckout    = "/checkout"
	RedirectDashboard   = "/dashboard"
	RedirectAdmin       = "/admin"
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Redirect   string `json:"redirect,omitempty"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError creates a 401 error for failed logins.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    reason,
		StatusCode: 401,
		Err:        ErrUnauthorized,
	}
}

// NewForbiddenError creates a 403 error for sessions lacking the admin role.
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:       "FORBIDDEN",
		Message:    reason,
		StatusCode: 403,
		Err:        ErrForbidden,
	}
}

// NewSourceUnavailableError creates a 503 error for a failed remote catalog fetch.
// The catalog is never reported as empty when this happens.
func NewSourceUnavailableError(err error) *APIError {
	return &APIError{
		Code:       "CATALOG_UNAVAILABLE",
		Message:    "failed to load products from the catalog source",
		StatusCode: 503,
		Err:        fmt.Errorf("%w: %v", ErrSourceUnavailable, err),
	}
}

// NewPreconditionError creates a 409 error that tells the shell where to go next.
// Not a failure of the request itself: the caller must resolve the precondition first.
func NewPreconditionError(code, message, redirect string) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		Redirect:   redirect,
		StatusCode: 409,
		Err:        ErrPreconditionFailed,
	}
}

// NewLoginRequiredError is the precondition failure for operations needing a session.
func NewLoginRequiredError() *APIError {
	return NewPreconditionError("LOGIN_REQUIRED", "please log in first", RedirectLogin)
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}
