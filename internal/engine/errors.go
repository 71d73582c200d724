package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error answered to a boundary call.
//
// Runtime errors include:
//   - Unsupported: the operation has no local implementation
//   - Missing action: runAction names a card that is not registered
//   - Invalid args: the named arguments do not decode
//   - Script failed: a program action's code threw or failed to import
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Op is the boundary operation name.
	Op string

	// Action is the card name for runAction failures.
	Action string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnsupported indicates an operation the local host does not implement.
	ErrCodeUnsupported RuntimeErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeMissingAction indicates runAction named an unregistered card.
	ErrCodeMissingAction RuntimeErrorCode = "MISSING_ACTION"

	// ErrCodeInvalidArgs indicates the named arguments could not be decoded.
	ErrCodeInvalidArgs RuntimeErrorCode = "INVALID_ARGS"

	// ErrCodeScriptFailed indicates a program action's code failed.
	ErrCodeScriptFailed RuntimeErrorCode = "SCRIPT_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Action != "" {
		msg = fmt.Sprintf("%s (op=%s, action=%s)", msg, e.Op, e.Action)
	} else if e.Op != "" {
		msg = fmt.Sprintf("%s (op=%s)", msg, e.Op)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsUnsupported returns true if the error is an unsupported operation error.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupported)
}

// IsMissingAction returns true if the error is a missing action error.
func IsMissingAction(err error) bool {
	return hasCode(err, ErrCodeMissingAction)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func unsupported(op string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnsupported,
		Message: "operation is not available on the local host",
		Op:      op,
	}
}

func missingAction(op, action string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMissingAction,
		Message: "no card registered under this name",
		Op:      op,
		Action:  action,
	}
}

func invalidArgs(op string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidArgs,
		Message: "arguments do not decode",
		Op:      op,
		Err:     err,
	}
}
