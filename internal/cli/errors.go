// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/paramstore/internal/config"
	"github.com/jeranaias/paramstore/internal/param"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAccessDenied indicates the current tier may not change a parameter
	ExitAccessDenied = 4
	// ExitStorageError indicates the blob store could not be used
	ExitStorageError = 5
	// ExitValueError indicates a value that does not fit or parse
	ExitValueError = 6
	// ExitNotFoundError indicates an unknown parameter or key
	ExitNotFoundError = 7
)

// ErrConfig marks errors loading or validating configuration.
var ErrConfig = errors.New("configuration error")

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError represents invalid command usage.
type UsageError struct {
	Command string // Command that was misused
	Reason  string // What was wrong
	Example string // Example of valid usage (optional)
}

func (e *UsageError) Error() string {
	msg := e.Reason
	if e.Command != "" {
		msg = e.Command + ": " + msg
	}
	if e.Example != "" {
		msg += "\nUsage: " + e.Example
	}
	return msg
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(command, argName, usage string) error {
	return &UsageError{
		Command: command,
		Reason:  fmt.Sprintf("missing %s", argName),
		Example: usage,
	}
}

// ErrUnknownSubcommand creates an error for an unrecognized subcommand.
func ErrUnknownSubcommand(command, sub, usage string) error {
	return &UsageError{
		Command: command,
		Reason:  fmt.Sprintf("unknown subcommand %q", sub),
		Example: usage,
	}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON error response in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.ErrorType = errorType(err)
		resp.Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// errorType names the error category for JSON output.
func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "usage_error"
	case ExitConfigError:
		return "config_error"
	case ExitAccessDenied:
		return "access_denied"
	case ExitStorageError:
		return "storage_error"
	case ExitValueError:
		return "value_error"
	case ExitNotFoundError:
		return "not_found"
	}
	return "generic_error"
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var ttyErr *TTYRequiredError
	if errors.As(err, &usageErr) || errors.As(err, &ttyErr) {
		return ExitUsageError
	}
	var configErrs config.ValidateErrors
	if errors.Is(err, ErrConfig) || errors.As(err, &configErrs) {
		return ExitConfigError
	}

	switch {
	case errors.Is(err, param.ErrAccessDenied):
		return ExitAccessDenied
	case errors.Is(err, param.ErrInitFailure), errors.Is(err, param.ErrStorageFailure):
		return ExitStorageError
	case errors.Is(err, param.ErrSize),
		errors.Is(err, param.ErrParse),
		errors.Is(err, param.ErrInvalidArgument),
		errors.Is(err, param.ErrInvalidSchema):
		return ExitValueError
	case errors.Is(err, param.ErrUnknownParam):
		return ExitNotFoundError
	}
	return ExitGeneralError
}
