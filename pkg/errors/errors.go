// Package errors defines the coded errors objgraph returns from the CLI and
// the HTTP playground.
//
// Exceptions thrown by user snippets are not Go errors. The sandbox captures
// them and they are drawn as error graphs. The codes here describe failures
// of objgraph itself.
//
//	err := errors.New(errors.ErrCodeInvalidFormat, "unknown format: %s", f)
//	errors.Is(err, errors.ErrCodeInvalidFormat) // true
//	errors.ClassOf(err)                         // errors.ClassInvalid
//
// Each code belongs to a [Class], which the HTTP layer maps to a status and
// the CLI maps to an exit code.
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidCode    Code = "INVALID_CODE"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidRankDir Code = "INVALID_RANKDIR"
	ErrCodeInvalidSnippet Code = "INVALID_SNIPPET"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeSampleNotFound  Code = "SAMPLE_NOT_FOUND"
	ErrCodeSnippetNotFound Code = "SNIPPET_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	ErrCodeRender  Code = "RENDER_ERROR"
	ErrCodeStorage Code = "STORAGE_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Class groups codes by how a caller should react to them.
type Class int

const (
	ClassInternal Class = iota
	ClassInvalid
	ClassNotFound
	ClassTimeout
	ClassUnsupported
	ClassBackend
)

var classes = map[Code]Class{
	ErrCodeInvalidInput:    ClassInvalid,
	ErrCodeInvalidCode:     ClassInvalid,
	ErrCodeInvalidFormat:   ClassInvalid,
	ErrCodeInvalidRankDir:  ClassInvalid,
	ErrCodeInvalidSnippet:  ClassInvalid,
	ErrCodeInvalidConfig:   ClassInvalid,
	ErrCodeNotFound:        ClassNotFound,
	ErrCodeSampleNotFound:  ClassNotFound,
	ErrCodeSnippetNotFound: ClassNotFound,
	ErrCodeFileNotFound:    ClassNotFound,
	ErrCodeRender:          ClassBackend,
	ErrCodeStorage:         ClassBackend,
	ErrCodeTimeout:         ClassTimeout,
	ErrCodeUnsupported:     ClassUnsupported,
}

// Class returns the class of c. Unknown codes are internal.
func (c Code) Class() Class { return classes[c] }

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with a formatted message and cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// as finds the outermost *Error in err's chain.
func as(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	e, ok := as(err)
	return ok && e.Code == code
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	if e, ok := as(err); ok {
		return e.Code
	}
	return ""
}

// ClassOf returns the class of err's code. Uncoded errors are internal.
func ClassOf(err error) Class { return GetCode(err).Class() }

// UserMessage returns the message of a coded error without its code prefix,
// or err.Error() for any other error.
func UserMessage(err error) string {
	if e, ok := as(err); ok {
		return e.Message
	}
	return err.Error()
}

func IsNotFound(err error) bool { return ClassOf(err) == ClassNotFound }
func IsInvalid(err error) bool  { return ClassOf(err) == ClassInvalid }

// ExitCode maps err to a process exit status: 0 for nil, 2 for invalid
// input, 3 for missing resources and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch ClassOf(err) {
	case ClassInvalid:
		return 2
	case ClassNotFound:
		return 3
	}
	return 1
}
