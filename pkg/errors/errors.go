// SPDX-License-Identifier: Apache-2.0
// Package errors provides the typed error taxonomy for the Nexus agent.
// Errors carry a code, a recoverable flag consulted by the retry policy,
// and structured context for logging.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"os"
)

// ErrorCode classifies agent errors for retry decisions and monitoring.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the request was malformed or rejected by validation.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeConnection indicates a network-level failure reaching the remote service.
	CodeConnection ErrorCode = "CONNECTION_ERROR"

	// CodeRateLimited indicates the remote service returned 429.
	CodeRateLimited ErrorCode = "RATE_LIMITED"

	// CodeRemote indicates a remote server-side (5xx) failure.
	CodeRemote ErrorCode = "REMOTE_ERROR"

	// CodeNotFound indicates a remote resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates authentication or authorization failed.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeCancelled indicates the run was cancelled while the operation was
	// in flight or waiting. Distinguished from exhaustion so callers can tell
	// "gave up after N tries" from "was stopped".
	CodeCancelled ErrorCode = "CANCELLED"
)

// AgentError is a typed error with a retryability flag and rich context.
// It implements the error interface and supports errors.As/Is unwrapping.
type AgentError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
	StatusCode  int // HTTP status from the remote service, when known
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *AgentError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code        string         `json:"code"`
		Message     string         `json:"message"`
		Err         string         `json:"error,omitempty"`
		Recoverable bool           `json:"recoverable"`
		StatusCode  int            `json:"status_code,omitempty"`
		Context     map[string]any `json:"context,omitempty"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Err:         errString(e.Err),
		Recoverable: e.Recoverable,
		StatusCode:  e.StatusCode,
		Context:     e.Context,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// New creates a new AgentError with the given code, message, and cause.
// The recoverable flag is derived from the code; override with WithRecoverable.
func New(code ErrorCode, msg string, cause error) *AgentError {
	return &AgentError{
		Code:        code,
		Message:     msg,
		Err:         cause,
		Recoverable: codeRecoverable(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *AgentError) WithContext(key string, value any) *AgentError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable overrides whether the error can be recovered from.
func (e *AgentError) WithRecoverable(recoverable bool) *AgentError {
	e.Recoverable = recoverable
	return e
}

// WithStatusCode records the remote HTTP status on the error.
func (e *AgentError) WithStatusCode(status int) *AgentError {
	e.StatusCode = status
	return e
}

// FromHTTPStatus builds an AgentError from a remote HTTP status code.
// 5xx, 429 and 408 are transient; every other 4xx is permanent.
func FromHTTPStatus(status int, msg string) *AgentError {
	var code ErrorCode
	switch {
	case status == 429:
		code = CodeRateLimited
	case status == 408:
		code = CodeTimeout
	case status == 401 || status == 403:
		code = CodeUnauthorized
	case status == 404:
		code = CodeNotFound
	case status >= 500:
		code = CodeRemote
	case status >= 400:
		code = CodeInvalidInput
	default:
		code = CodeInternal
	}
	return New(code, msg, nil).WithStatusCode(status)
}

// IsTransient reports whether err should be retried. Typed errors are
// classified by their recoverable flag; a CodeTimeout error stays transient
// even though it wraps context.DeadlineExceeded. Cancellation is never
// transient. Untyped errors are classified by shape: network and deadline
// errors retry, everything else is treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ae *AgentError
	if stderrors.As(err, &ae) {
		return ae.Recoverable
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if stderrors.As(err, &ne) {
		return true
	}
	return stderrors.Is(err, os.ErrDeadlineExceeded)
}

// IsCancelled reports whether err represents a cancelled run. Typed errors
// are judged by code alone so an attempt-timeout error wrapping
// context.DeadlineExceeded does not read as a cancellation.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	var ae *AgentError
	if stderrors.As(err, &ae) {
		return ae.Code == CodeCancelled
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// Code extracts the ErrorCode from err, or CodeInternal for untyped errors.
func Code(err error) ErrorCode {
	var ae *AgentError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func codeRecoverable(code ErrorCode) bool {
	switch code {
	case CodeTimeout, CodeConnection, CodeRateLimited, CodeRemote:
		return true
	default:
		return false
	}
}
