package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of application error. Handlers map codes to
// HTTP statuses and the client branches on the code, not the message.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeDuplicate  Code = "DUPLICATE"
	CodeBlocked    Code = "USER_BLOCKED"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Error is the application error carried from repositories and the feed
// core up to the handler boundary.
type Error struct {
	Code    Code
	Message string
	Field   string // set for validation and duplicate errors
	Err     error  // wrapped cause, never sent to the client
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed input with field-level detail.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

// NotFound reports an absent or soft-deleted resource.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// Duplicate reports a unique-constraint conflict on the named field.
func Duplicate(field, message string) *Error {
	return &Error{Code: CodeDuplicate, Field: field, Message: message}
}

// Blocked reports a block relationship between viewer and author.
func Blocked() *Error {
	return &Error{Code: CodeBlocked, Message: "user is blocked"}
}

// Internal wraps an unexpected failure (store unreachable, bad state).
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Err: err}
}

// CodeOf extracts the Code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to its HTTP status. Blocked maps to 404 so a
// blocked caller cannot distinguish a block from a missing resource.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeDuplicate:
		return http.StatusBadRequest
	case CodeNotFound, CodeBlocked:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
