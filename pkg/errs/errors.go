// Package errs defines the typed error values returned by services.
// The HTTP layer maps these to status codes and response envelopes;
// services never format user-facing responses themselves.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies the error category.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeAccessDenied Code = "ACCESS_DENIED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a typed service error.
type Error struct {
	Code    Code
	Message string
	// Details carries field->message pairs for validation errors.
	Details map[string]string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a field-level validation error.
func Validation(details map[string]string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "the given data was invalid",
		Details: details,
	}
}

// AccessDenied returns a permission error.
func AccessDenied(message string) *Error {
	if message == "" {
		message = "access denied"
	}
	return &Error{Code: CodeAccessDenied, Message: message}
}

// NotFound returns a missing-entity error. Scope exclusion and true
// absence are deliberately indistinguishable to the caller.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

// Conflict returns a uniqueness-violation error.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Internal wraps an unexpected store or file failure.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Err: err}
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// DetailsOf returns the field details of err, if any.
func DetailsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsAccessDenied reports whether err is a permission error.
func IsAccessDenied(err error) bool { return CodeOf(err) == CodeAccessDenied }

// IsNotFound reports whether err is a missing-entity error.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeNotFound
	}
	return false
}

// IsConflict reports whether err is a uniqueness-violation error.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }
