// Package domainerrors defines the coded error taxonomy shared by services and
// the HTTP layer. Stores return sentinel errors; services wrap them (or create
// new coded errors) here; handlers translate codes to HTTP statuses.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and callers' retry policy.
type Code string

const (
	// CodeInvalidInput marks malformed input. Never retried, surfaced verbatim.
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound marks a missing or soft-deleted entity.
	CodeNotFound Code = "not_found"

	// CodeRateLimited marks a submission quota violation (per-device hourly cap).
	CodeRateLimited Code = "rate_limited"

	// CodeDuplicate marks a submission matching a live nearby sighting. The
	// existing sighting id travels in Meta under MetaExistingSightingID so the
	// caller can redirect to a check-in.
	CodeDuplicate Code = "duplicate"

	// CodeWindowClosed marks a temporal rule violation (check-in window ended).
	// Distinct from invalid input: the request was well-formed, just too late.
	CodeWindowClosed Code = "window_closed"

	// CodeCooldownActive marks a per-(device, sighting) check-in cooldown hit.
	// Rate-limit class, not validation.
	CodeCooldownActive Code = "cooldown_active"

	// CodeUnauthorized marks missing or rejected admin credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeInternal marks storage or other infrastructure failure. Details are
	// logged, never exposed to the caller.
	CodeInternal Code = "internal_error"
)

// MetaExistingSightingID is the Meta key carrying the winner's id on CodeDuplicate.
const MetaExistingSightingID = "existing_sighting_id"

// Error is a coded domain error, optionally wrapping a cause and carrying
// transport-safe metadata.
type Error struct {
	Code    Code
	Message string
	Meta    map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error wrapping a cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithMeta attaches a metadata pair and returns the error for chaining.
func (e *Error) WithMeta(key, value string) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]string, 1)
	}
	e.Meta[key] = value
	return e
}

// HasCode reports whether err is (or wraps) a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// From extracts the domain error from err, or nil if there is none.
func From(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeWindowClosed:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicate:
		return http.StatusConflict
	case CodeRateLimited, CodeCooldownActive:
		return http.StatusTooManyRequests
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
