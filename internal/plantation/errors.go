package plantation

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for the HTTP boundary.
type Code string

// Domain error codes.
const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeGeospatial   Code = "GEOSPATIAL_ERROR"
	CodeForbidden    Code = "FORBIDDEN"
	CodeUnauthorized Code = "UNAUTHORIZED"
)

// Error is a client-facing domain error. Anything that is not an *Error is
// treated as an infrastructure failure.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation reports malformed input.
func Validation(msg string, details map[string]any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFound reports a missing referenced record.
func NotFound(what, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", what),
		Details: map[string]any{"resource": what, "id": id},
	}
}

// Conflict reports a write rejected because of existing state.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Geospatial reports a violated spatial constraint.
func Geospatial(msg string) *Error {
	return &Error{Code: CodeGeospatial, Message: msg}
}

// Forbidden reports an authenticated principal lacking permission.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Unauthorized reports a missing or invalid principal.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// AsError extracts a domain error from a (possibly wrapped) error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCode reports whether err carries a domain error with the given code.
func IsCode(err error, code Code) bool {
	de, ok := AsError(err)
	return ok && de.Code == code
}
