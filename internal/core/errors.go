package core

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeInvalidModel marks a structurally unsound machine definition.
	CodeInvalidModel ErrorCode = "INVALID_MODEL"

	// CodeGuardEvaluation marks a guard that failed or panicked.
	CodeGuardEvaluation ErrorCode = "GUARD_EVALUATION"

	// CodeActionExecution marks an action that failed or panicked.
	CodeActionExecution ErrorCode = "ACTION_EXECUTION"

	// CodeRuntimeFault marks an eventless or internal chain that did not settle.
	CodeRuntimeFault ErrorCode = "RUNTIME_FAULT"

	// CodeDuplicateSystemID marks a systemId that is already registered.
	CodeDuplicateSystemID ErrorCode = "DUPLICATE_SYSTEM_ID"
)

// Error is the engine error type. Sentinels below match any Error with the
// same code through errors.Is.
type Error struct {
	Code    ErrorCode
	Message string
	// Node is the state node or actor the error relates to, when known.
	Node  string
	Cause error
}

var (
	ErrInvalidModel      = &Error{Code: CodeInvalidModel}
	ErrGuardEvaluation   = &Error{Code: CodeGuardEvaluation}
	ErrActionExecution   = &Error{Code: CodeActionExecution}
	ErrRuntimeFault      = &Error{Code: CodeRuntimeFault}
	ErrDuplicateSystemID = &Error{Code: CodeDuplicateSystemID}
)

// Errorf builds an Error with a formatted message.
func Errorf(code ErrorCode, node string, format string, args ...any) *Error {
	return &Error{Code: code, Node: node, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause.
func Wrap(code ErrorCode, node string, cause error) *Error {
	return &Error{Code: code, Node: node, Message: cause.Error(), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, msg, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// recovered converts a panic value into an Error of the given code.
func recovered(code ErrorCode, node string, r any) *Error {
	if err, ok := r.(error); ok {
		return &Error{Code: code, Node: node, Message: "panic: " + err.Error(), Cause: err}
	}
	return Errorf(code, node, "panic: %v", r)
}
