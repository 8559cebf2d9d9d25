package errs

import (
	"errors"
	"fmt"
)

// Code is a verification error code.
type Code string

const (
	// AssertionFailure means an expected condition about visible page state did not hold.
	AssertionFailure Code = "assertion_failure"
	// UnexpectedFault is any other fault during checkpoint execution.
	UnexpectedFault Code = "unexpected_fault"
	// InvalidArgument is a configuration or usage error raised before a run starts.
	InvalidArgument Code = "invalid_argument"
)

// Error is a coded verification error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// Assertf reports an assertion failure.
func Assertf(format string, args ...any) error {
	return Newf(AssertionFailure, format, args...)
}

// CodeOf returns the error code. Errors without a coded wrapper are
// unexpected faults.
func CodeOf(err error) Code {
	if err == nil {
		return UnexpectedFault
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return UnexpectedFault
		}
		return coded.Code
	}
	return UnexpectedFault
}

// MessageOf returns the message a failure line should print.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Error()
	}
	return err.Error()
}

// IsAssertion reports whether err is an assertion failure.
func IsAssertion(err error) bool {
	return err != nil && CodeOf(err) == AssertionFailure
}

// ExitCode maps an error to the process exit code: 0 for nil, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
