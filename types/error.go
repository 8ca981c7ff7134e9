package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Registry and discovery error codes. These are structural and surface
// before any agent executes.
const (
	ErrDuplicateIdentifier ErrorCode = "DUPLICATE_IDENTIFIER"
	ErrNoAgentsVisible     ErrorCode = "NO_AGENTS_VISIBLE"
	ErrInvalidConfig       ErrorCode = "INVALID_CONFIG"
	ErrInvalidQuery        ErrorCode = "INVALID_QUERY"
	ErrInvalidScope        ErrorCode = "INVALID_SCOPE"
	ErrUnknownKind         ErrorCode = "UNKNOWN_KIND"
)

// Execution error codes.
const (
	ErrAgentNotFound             ErrorCode = "AGENT_NOT_FOUND"
	ErrAgentFailed               ErrorCode = "AGENT_FAILED"
	ErrPathExecutionFailed       ErrorCode = "PATH_EXECUTION_FAILED"
	ErrPathNotValidated          ErrorCode = "PATH_NOT_VALIDATED"
	ErrValidationBudgetExhausted ErrorCode = "VALIDATION_BUDGET_EXHAUSTED"
	ErrNoViablePath              ErrorCode = "NO_VIABLE_PATH"
	ErrMissingField              ErrorCode = "TEMPLATE_MISSING_FIELD"
	ErrBranchFailed              ErrorCode = "BRANCH_FAILED"
	ErrRunAborted                ErrorCode = "RUN_ABORTED"
)

// Error represents a structured error with code, message, and the
// identifiers needed to tell a scoping mistake from a typo.
type Error struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	AgentID  string    `json:"agent_id,omitempty"`
	ScopeID  string    `json:"scope_id,omitempty"`
	Feedback string    `json:"feedback,omitempty"`
	Cause    error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.AgentID != "" || e.ScopeID != "" {
		b.WriteString(" (")
		if e.AgentID != "" {
			fmt.Fprintf(&b, "agent=%q", e.AgentID)
		}
		if e.ScopeID != "" {
			if e.AgentID != "" {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "scope=%q", e.ScopeID)
		}
		b.WriteString(")")
	}
	if e.Feedback != "" {
		fmt.Fprintf(&b, ": last feedback: %s", e.Feedback)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so errors.Is(err, NewError(code, ""))
// works as a code check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithAgent sets the offending agent identifier.
func (e *Error) WithAgent(id string) *Error {
	e.AgentID = id
	return e
}

// WithScope sets the scope that was searched.
func (e *Error) WithScope(id string) *Error {
	e.ScopeID = id
	return e
}

// WithFeedback attaches validator feedback.
func (e *Error) WithFeedback(feedback string) *Error {
	e.Feedback = feedback
	return e
}

// AsError extracts the first *Error in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether any *Error in the chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsStructural reports whether err is a configuration-time error that must
// abort a run before any agent executes.
func IsStructural(err error) bool {
	switch GetErrorCode(err) {
	case ErrDuplicateIdentifier, ErrNoAgentsVisible, ErrInvalidConfig,
		ErrInvalidQuery, ErrInvalidScope, ErrUnknownKind:
		return true
	}
	return false
}

// NewAgentNotFoundError reports an identifier that is not registered in the
// scope it was searched in.
func NewAgentNotFoundError(agentID, scopeID string) *Error {
	return NewError(ErrAgentNotFound, "agent not found in scope").
		WithAgent(agentID).
		WithScope(scopeID)
}

// NewPathExecutionError reports the agent a path stopped at.
func NewPathExecutionError(at, scopeID string, cause error) *Error {
	return NewError(ErrPathExecutionFailed, "path execution failed").
		WithAgent(at).
		WithScope(scopeID).
		WithCause(cause)
}
