package access

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures so the transport layer can map them to
// HTTP statuses without string matching.
type ErrorCode string

// Engine error codes
const (
	CodeValidation          ErrorCode = "validation_error"
	CodePolicyDisabled      ErrorCode = "policy_disabled"
	CodeDurationOutOfBounds ErrorCode = "duration_out_of_bounds"
	CodeQuotaExceeded       ErrorCode = "quota_exceeded"
	CodeNotFound            ErrorCode = "not_found"
	CodeNotOwner            ErrorCode = "not_owner"
	CodeStateConflict       ErrorCode = "state_conflict"
	CodeConcurrencyConflict ErrorCode = "concurrency_conflict"
	CodeGeneratorExhausted  ErrorCode = "generator_exhausted"
	CodeInternal            ErrorCode = "internal_error"
)

// Error is the engine error type. Err carries the underlying cause, if any.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
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

// NewError builds an engine error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError builds an engine error preserving the underlying cause.
func WrapError(err error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the error code of err, or CodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given engine error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Rejection reasons returned by VerifyCode when a submitted code cannot be
// accepted. These are diagnostic: security personnel see why a code failed,
// not a generic not-found.
const (
	ReasonAlreadyUsed = "already_used"
	ReasonRevoked     = "revoked"
	ReasonExpired     = "expired"
	ReasonNotFound    = "not_found"
)

// Rejection is the verification refusal. It is an error so the transport
// layer can branch on it, but it is an expected outcome, not a failure.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return "verification rejected: " + r.Reason
}

// Reject builds a Rejection with the given reason.
func Reject(reason string) *Rejection {
	return &Rejection{Reason: reason}
}

// AsRejection unwraps err into a Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
