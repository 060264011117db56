// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the error taxonomy shared by the session layer,
// the adapters and the HTTP surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"
)

// Error types
const (
	// ErrConfiguration is returned when an adapter or flow is missing required configuration
	ErrConfiguration = "configuration"

	// ErrCredential is returned when stored credentials are absent, expired or invalid
	ErrCredential = "credential"

	// ErrUpstream is returned when a third-party service is unreachable or misbehaves
	ErrUpstream = "upstream"

	// ErrUnknownTool is returned when a tool name is not offered by the adapter
	ErrUnknownTool = "unknown_tool"

	// ErrInvalidArgument is returned when a request is missing or has malformed arguments
	ErrInvalidArgument = "invalid_argument"

	// ErrSessionConflict is returned when a second transport tries to attach to a session
	ErrSessionConflict = "session_conflict"

	// ErrTimeout is returned when adapter construction or readiness exceeds its bound
	ErrTimeout = "timeout"

	// ErrNotFound is returned when a service or session is unknown
	ErrNotFound = "not_found"

	// ErrInternal is returned when there is an internal error
	ErrInternal = "internal"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string, cause error) *Error {
	return NewError(ErrConfiguration, message, cause)
}

// NewCredentialError creates a new credential error
func NewCredentialError(message string, cause error) *Error {
	return NewError(ErrCredential, message, cause)
}

// NewUpstreamError creates a new upstream error
func NewUpstreamError(message string, cause error) *Error {
	return NewError(ErrUpstream, message, cause)
}

// NewUnknownToolError creates a new unknown tool error
func NewUnknownToolError(message string, cause error) *Error {
	return NewError(ErrUnknownTool, message, cause)
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string, cause error) *Error {
	return NewError(ErrInvalidArgument, message, cause)
}

// NewSessionConflictError creates a new session conflict error
func NewSessionConflictError(message string, cause error) *Error {
	return NewError(ErrSessionConflict, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *Error {
	return NewError(ErrTimeout, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternal, message, cause)
}

// TypeOf returns the type of the outermost *Error in err's chain, or "".
func TypeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

func isType(err error, errorType string) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsConfiguration checks if the error is a configuration error
func IsConfiguration(err error) bool { return isType(err, ErrConfiguration) }

// IsCredential checks if the error is a credential error
func IsCredential(err error) bool { return isType(err, ErrCredential) }

// IsUpstream checks if the error is an upstream error
func IsUpstream(err error) bool { return isType(err, ErrUpstream) }

// IsUnknownTool checks if the error is an unknown tool error
func IsUnknownTool(err error) bool { return isType(err, ErrUnknownTool) }

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool { return isType(err, ErrInvalidArgument) }

// IsSessionConflict checks if the error is a session conflict error
func IsSessionConflict(err error) bool { return isType(err, ErrSessionConflict) }

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool { return isType(err, ErrTimeout) }

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrNotFound) }

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool { return isType(err, ErrInternal) }

var statusByType = map[string]int{
	ErrConfiguration:   http.StatusInternalServerError,
	ErrCredential:      http.StatusUnauthorized,
	ErrUpstream:        http.StatusBadGateway,
	ErrUnknownTool:     http.StatusBadRequest,
	ErrInvalidArgument: http.StatusBadRequest,
	ErrSessionConflict: http.StatusConflict,
	ErrTimeout:         http.StatusGatewayTimeout,
	ErrNotFound:        http.StatusNotFound,
	ErrInternal:        http.StatusInternalServerError,
}

// HTTPStatus maps err to the status code the HTTP surface reports for it.
// Typed errors map by type; anything else falls back to the code attached
// with httperr.WithCode, which defaults to 500.
func HTTPStatus(err error) int {
	if code, ok := statusByType[TypeOf(err)]; ok {
		return code
	}
	return httperr.Code(err)
}
