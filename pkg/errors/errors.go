// Package errors provides structured error types for floorplan.
//
// Every failure that reaches a user carries a machine-readable [Code] so the
// CLI, the HTTP API and tests can tell apart a broken drawing from a broken
// configuration or a failing external renderer:
//
//   - MALFORMED_DOCUMENT: the SVG cannot be turned into an annotation model
//   - UNKNOWN_LAYER / UNKNOWN_LAYER_REFERENCE: a lookup or a configuration
//     names a layer the drawing does not have
//   - CIRCUIT_VALIDATION: annotation defects found while building circuits
//   - RENDER_FAILURE: the external renderer failed for a page
//   - INVALID_*: bad user input (configuration, formats, paths)
//
// Domain packages attach their own detail types (for example the list of
// circuit violations) as the Cause of an *Error, so both errors.Is on the code
// and errors.As on the detail type work on the same value.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownLayer, "unknown layer %q", id)
//	if errors.Is(err, errors.ErrCodeUnknownLayer) {
//	    // handle lookup failure
//	}
//
//	err = errors.Wrap(errors.ErrCodeMalformedDocument, cause, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Document errors
	ErrCodeMalformedDocument     Code = "MALFORMED_DOCUMENT"
	ErrCodeUnknownLayer          Code = "UNKNOWN_LAYER"
	ErrCodeUnknownLayerReference Code = "UNKNOWN_LAYER_REFERENCE"

	// Derivation errors
	ErrCodeCircuitValidation Code = "CIRCUIT_VALIDATION"
	ErrCodeRenderFailure     Code = "RENDER_FAILURE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given error code anywhere in its chain.
// Unlike the standard library's errors.As, it keeps unwrapping past an *Error
// with a different code, so a RENDER_FAILURE wrapped in an outer INTERNAL
// error is still found.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
