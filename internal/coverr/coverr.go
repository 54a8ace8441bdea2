// Package coverr defines the stable error codes used across coves.
package coverr

import (
	"errors"
	"fmt"
)

// Code is a stable error code string, safe for machine consumption.
type Code string

const (
	ECfgMissing   Code = "E_CONFIG_MISSING"
	ECfgMalformed Code = "E_CONFIG_MALFORMED"
	ENameInvalid  Code = "E_NAME_INVALID"

	EWorkspaceExists Code = "E_WORKSPACE_EXISTS"
	EVCSFailure      Code = "E_VCS_FAILURE"
	ETemplateRender  Code = "E_TEMPLATE_RENDER"
	ERuntimeStart    Code = "E_RUNTIME_START"

	EReadyTimeout Code = "E_READY_TIMEOUT"
	EAgentTimeout Code = "E_AGENT_TIMEOUT"
	EServiceStart Code = "E_SERVICE_START"

	ENoSession           Code = "E_NO_SESSION"
	ENoTTY               Code = "E_NO_TTY"
	EResultIndeterminate Code = "E_RESULT_INDETERMINATE"

	ERemovalBlocked Code = "E_REMOVAL_BLOCKED"
	EEnvNotFound    Code = "E_ENV_NOT_FOUND"

	EInternal Code = "E_INTERNAL"
)

// Error is the standard error type carrying a code plus optional context.
type Error struct {
	Code    Code
	Msg     string
	Cause   error
	Details map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(code Code, msg string, cause error) error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// WithDetails attaches structured context to a new Error.
func WithDetails(code Code, msg string, details map[string]string) error {
	cp := make(map[string]string, len(details))
	for k, v := range details {
		cp[k] = v
	}
	return &Error{Code: code, Msg: msg, Details: cp}
}

// CodeOf extracts the code from err, or EInternal for foreign errors.
// Returns "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return EInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// ExitCode maps an error to a process exit code. Usage-level problems
// are cobra's to report; everything that reaches here is 0 or 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
