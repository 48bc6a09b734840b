// Package apperr defines the typed error codes carried across the
// wire at every external boundary (RPC responses, HTTP responses).
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeNotInQueue          Code = "NOT_IN_QUEUE"
	CodeAlreadyInQueue      Code = "ALREADY_IN_QUEUE"
	CodeMatchNotFound       Code = "MATCH_NOT_FOUND"
	CodeNotAParticipant     Code = "NOT_A_PARTICIPANT"
	CodeMatchNotActive      Code = "MATCH_NOT_ACTIVE"
	CodeAlreadySubmitted    Code = "ALREADY_SUBMITTED"
	CodePowerUpNotOwned     Code = "POWER_UP_NOT_OWNED"
	CodePowerUpOnCooldown   Code = "POWER_UP_ON_COOLDOWN"
	CodePowerUpInvalidState Code = "POWER_UP_INVALID_STATE"
	CodeHintQuotaExceeded   Code = "HINT_QUOTA_EXCEEDED"
	CodeHintOnCooldown      Code = "HINT_ON_COOLDOWN"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeSandboxTimeout      Code = "SANDBOX_TIMEOUT"
	CodeSandboxUnavailable  Code = "SANDBOX_UNAVAILABLE"
	CodeGraderUnavailable   Code = "GRADER_UNAVAILABLE"
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeInternal            Code = "INTERNAL"
)

// Error is the typed {code, message} shape handed back across every
// external boundary.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a new typed error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a new typed error carrying an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the Code from err, defaulting to CodeInternal when
// err is not (or does not wrap) an *Error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
