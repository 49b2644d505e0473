// Package errors provides structured error types for treescan.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the scan engine
//   - Machine-readable error codes for programmatic handling
//   - Diagnostic context (offending node, input line) on every fatal error
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The scan engine distinguishes four failure categories:
//   - STRUCTURAL: malformed tree (unknown parent, self-ancestry). Fatal.
//   - DATA_CONSISTENCY: impossible totals (negative or zero branch measure
//     carrying cases). Fatal, names the node.
//   - INPUT_PARSE: a malformed input record. Fatal for that record, names the line.
//   - CANCELLED: cooperative stop of the simulation loop. Results are incomplete.
//
// None of these are retried: the engine performs no I/O of its own.
//
// # Usage
//
//	err := errors.Structural("7", "parent %q is not defined", "12")
//	if errors.Is(err, errors.ErrCodeStructural) {
//	    // abort the run
//	}
//
//	// Wrap existing errors
//	err := errors.Parse(42, origErr, "invalid case count %q", field)
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidModel Code = "INVALID_MODEL"
	ErrCodeInvalidPath  Code = "INVALID_PATH"
	ErrCodeInvalidNode  Code = "INVALID_NODE"

	// Engine errors
	ErrCodeStructural      Code = "STRUCTURAL"
	ErrCodeDataConsistency Code = "DATA_CONSISTENCY"
	ErrCodeInputParse      Code = "INPUT_PARSE"
	ErrCodeCancelled       Code = "CANCELLED"

	// Resource errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code, optional diagnostic context and
// an optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Node    string // Offending node ID, if any
	Line    int    // 1-based input line, if any
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	switch {
	case e.Node != "" && e.Line > 0:
		msg = fmt.Sprintf("line %d: node %s: %s", e.Line, e.Node, msg)
	case e.Node != "":
		msg = fmt.Sprintf("node %s: %s", e.Node, msg)
	case e.Line > 0:
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
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

// Structural reports a malformed tree at the given node.
func Structural(node string, format string, args ...any) *Error {
	e := New(ErrCodeStructural, format, args...)
	e.Node = node
	return e
}

// DataConsistency reports impossible totals at the given node.
func DataConsistency(node string, format string, args ...any) *Error {
	e := New(ErrCodeDataConsistency, format, args...)
	e.Node = node
	return e
}

// Parse reports a malformed input record at the given 1-based line.
func Parse(line int, cause error, format string, args ...any) *Error {
	e := Wrap(ErrCodeInputParse, cause, format, args...)
	e.Line = line
	return e
}

// Cancelled wraps a context error as a cooperative stop. The returned error
// still satisfies errors.Is(err, context.Canceled) when cause does.
func Cancelled(cause error, format string, args ...any) *Error {
	if cause == nil {
		cause = context.Canceled
	}
	return Wrap(ErrCodeCancelled, cause, format, args...)
}

// WithNode returns a copy of e carrying the given node ID.
func (e *Error) WithNode(node string) *Error {
	c := *e
	c.Node = node
	return &c
}

// WithLine returns a copy of e carrying the given input line.
func (e *Error) WithLine(line int) *Error {
	c := *e
	c.Line = line
	return &c
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsFatal reports whether err aborts a run without usable results.
// Everything except a cooperative cancellation is fatal.
func IsFatal(err error) bool {
	return err != nil && !Is(err, ErrCodeCancelled)
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message with its node/line context but
// without the code prefix. For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch {
		case e.Node != "" && e.Line > 0:
			return fmt.Sprintf("line %d: node %s: %s", e.Line, e.Node, e.Message)
		case e.Node != "":
			return fmt.Sprintf("node %s: %s", e.Node, e.Message)
		case e.Line > 0:
			return fmt.Sprintf("line %d: %s", e.Line, e.Message)
		}
		return e.Message
	}
	return err.Error()
}
