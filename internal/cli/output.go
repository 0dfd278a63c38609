package cli

import (
	"errors"
	"fmt"

	"github.com/Makepad-fr/tada/internal/order"
)

// Exit codes for CLI commands.
const (
	ExitSuccess = 0 // Successful execution
	ExitFailure = 1 // Runtime or storage failure
	ExitUsage   = 2 // Bad arguments, invalid input or unknown item
)

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code    int    // ExitFailure or ExitUsage
	Message string // Error message
	Err     error  // Underlying error (optional)
	Hint    string // Optional follow-up shown under the error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that never went
// through a command body come from flag or argument parsing and count as
// usage errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsage
}

// classify maps a domain error onto an exit code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if order.IsValidation(err) || errors.Is(err, order.ErrNotFound) {
		return WrapExitError(ExitUsage, "", err)
	}
	return WrapExitError(ExitFailure, "", err)
}
