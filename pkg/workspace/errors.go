package workspace

import "errors"

// Error represents a domain error from workspace operations.
//
// These are business logic errors (permission denied, bad path, missing
// file) as opposed to infrastructure errors (disk failure). Adapters
// translate the Code to their own surface (e.g. HTTP status codes).
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the workspace path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a workspace error.
type ErrorCode int

const (
	// ErrIdentityMismatch indicates the claimed requester id did not match
	// the session-established identity. Always fatal, never retried.
	ErrIdentityMismatch ErrorCode = iota

	// ErrPermissionDenied indicates an authenticated requester lacks rights
	// to the specific path and operation
	ErrPermissionDenied

	// ErrValidation indicates a malformed path, a disallowed file type or
	// oversized content. The message names the violated rule.
	ErrValidation

	// ErrNotFound indicates the path does not exist
	ErrNotFound

	// ErrHandleExpired indicates a folder handle lookup miss or a handle
	// past its time-to-live. The message instructs re-discovery.
	ErrHandleExpired

	// ErrIOError indicates an underlying storage failure
	ErrIOError
)

// HandleExpiredMessage is the caller-facing message for expired or unknown
// folder handles. Callers match on this text to recover automatically by
// re-running discovery, so it is part of the external contract.
const HandleExpiredMessage = "folder handle is expired or unknown: re-run folder discovery to obtain a fresh handle"

// PermissionDeniedMessage is the caller-facing message for denied access.
// It deliberately does not disclose the target owner's identity.
const PermissionDeniedMessage = "access denied"

// NewValidationError builds a validation error naming the violated rule.
func NewValidationError(message, path string) *Error {
	return &Error{Code: ErrValidation, Message: message, Path: path}
}

// NewPermissionDenied builds a permission denial with the generic message.
func NewPermissionDenied(path string) *Error {
	return &Error{Code: ErrPermissionDenied, Message: PermissionDeniedMessage, Path: path}
}

// NewNotFound builds a not-found error for the given path.
func NewNotFound(path string) *Error {
	return &Error{Code: ErrNotFound, Message: "not found", Path: path}
}

// NewHandleExpired builds the expired-or-unknown-handle error with the
// contractual re-discovery message.
func NewHandleExpired() *Error {
	return &Error{Code: ErrHandleExpired, Message: HandleExpiredMessage}
}

// NewIOError wraps an infrastructure failure for a path.
func NewIOError(message, path string) *Error {
	return &Error{Code: ErrIOError, Message: message, Path: path}
}

// IdentityMismatchError is returned when a claimed requester identity does
// not match the execution context.
//
// The struct fields carry the full detail for the security log; the Error
// string is deliberately generic so probing callers learn nothing beyond
// the fact of the rejection.
type IdentityMismatchError struct {
	// ClaimedID is the untrusted requester id from the argument payload
	ClaimedID string

	// ActualID is the trusted requester id from the execution context
	ActualID string

	// Operation is the operation name the caller attempted
	Operation string

	// CorrelationID ties the rejection to the request
	CorrelationID string
}

// Error implements the error interface with a generic message.
func (e *IdentityMismatchError) Error() string {
	return "identity mismatch: request rejected"
}

// CodeOf extracts the domain error code from err.
// The second return is false when err carries no workspace error code.
func CodeOf(err error) (ErrorCode, bool) {
	var we *Error
	if errors.As(err, &we) {
		return we.Code, true
	}
	var ime *IdentityMismatchError
	if errors.As(err, &ime) {
		return ErrIdentityMismatch, true
	}
	return 0, false
}

// IsCode reports whether err carries the given workspace error code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
