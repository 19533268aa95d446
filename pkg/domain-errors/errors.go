// Package domainerrors defines coded domain errors shared across services and
// handlers. Stores return sentinel errors (pkg/platform/sentinel); services
// translate them into these coded errors at the domain boundary so transport
// can map codes to HTTP statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are stable API surface: they appear in
// error envelopes returned to clients.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInvalidState Code = "invalid_state"
	CodeInternal     Code = "internal"

	// Workflow-specific codes. These are returned as typed outcomes, not
	// exceptional conditions: the caller is expected to recover from them.
	CodeValidationIncomplete Code = "validation_incomplete"
	CodeUploadFailed         Code = "upload_failed"
	CodePersistenceFailed    Code = "persistence_failed"
)

// Error carries a code, a human-readable message, and optionally the field
// keys or document slots that caused the failure. Multi-field stages make a
// bare "request failed" useless to the caller, so validation errors always
// name what is missing.
type Error struct {
	Code    Code
	Message string
	Fields  []string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that preserves the underlying cause for
// errors.Is / errors.As chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithFields attaches the offending field keys or slot names to the error.
func (e *Error) WithFields(fields ...string) *Error {
	e.Fields = append(e.Fields, fields...)
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

// Is is a convenience alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, or CodeInternal when err is not a domain
// error. Never returns an empty code for a non-nil error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf extracts the attached field keys from err, if any.
func FieldsOf(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// HTTPStatus maps a code to the HTTP status used by the transport layer.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeValidationIncomplete:
		return http.StatusUnprocessableEntity
	case CodeUploadFailed:
		return http.StatusBadGateway
	case CodePersistenceFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
