// Package domainerrors defines the error taxonomy shared across registry
// services and transports. Services attach a Code to every failure they
// surface; handlers translate codes to HTTP statuses and clients branch on
// the code string rather than the message text.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Codes are part of the API contract and
// must stay stable once released.
type Code string

// Registry codes. One per precondition the registry enforces.
const (
	CodeAlreadyEnrolled    Code = "already_enrolled"
	CodeInvalidDeadline    Code = "invalid_deadline"
	CodeNotEnrolled        Code = "not_enrolled"
	CodeDeadlinePassed     Code = "deadline_passed"
	CodeDuplicateClaim     Code = "duplicate_claim"
	CodeInvalidProofHash   Code = "invalid_proof_hash"
	CodeNotVerifier        Code = "not_verifier"
	CodeClaimNotFound      Code = "claim_not_found"
	CodeClaimNotPending    Code = "claim_not_pending"
	CodeNotAdmin           Code = "not_admin"
	CodeVerifierExists     Code = "verifier_exists"
	CodeVerifierNotFound   Code = "verifier_not_found"
	CodeEnrollmentNotFound Code = "enrollment_not_found"
)

// Ambient codes shared by all modules.
const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with the given code and a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error, preserving the cause
// for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// Is is an alias for HasCode, matching the errors.Is call shape.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code in the chain, or CodeInternal for errors
// without one.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeAlreadyEnrolled, CodeDuplicateClaim, CodeVerifierExists, CodeConflict:
		return http.StatusConflict
	case CodeInvalidDeadline, CodeInvalidProofHash, CodeBadRequest, CodeInvalidInput, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeNotEnrolled, CodeClaimNotFound, CodeVerifierNotFound, CodeEnrollmentNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeDeadlinePassed, CodeClaimNotPending:
		return http.StatusUnprocessableEntity
	case CodeNotAdmin, CodeNotVerifier:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
