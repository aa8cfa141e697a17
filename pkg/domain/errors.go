package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingRequiredFields    = errors.New("missing_required_fields")
	ErrMissingWorkflowFields    = errors.New("missing_workflow_fields")
	ErrCircularDependency       = errors.New("circular_dependency")
	ErrUnknownDependency        = errors.New("unknown_dependency")
	ErrDuplicateInstructionID   = errors.New("duplicate_instruction_id")
	ErrInvalidInstruction       = errors.New("invalid_instruction")
	ErrWorkflowNotFound         = errors.New("workflow_not_found")
	ErrWorkflowAlreadyRunning   = errors.New("workflow_already_running")
	ErrWorkflowAlreadyCompleted = errors.New("workflow_already_completed")
	ErrWorkflowPreviouslyFailed = errors.New("workflow_previously_failed")
	ErrWorkflowCancelled        = errors.New("workflow_cancelled")
	ErrNotCached                = errors.New("not_cached")
	ErrInstructionFailed        = errors.New("instruction_failed")
	ErrCoordinatorStopped       = errors.New("coordinator_stopped")
)

// Error is a deterministic domain failure. Kind is one of the sentinel
// errors above and is what errors.Is matches against.
type Error struct {
	Kind   error
	Msg    string
	ID     string   // offending instruction or workflow id, when there is one
	Fields []string // missing keys for the missing_* kinds
	Cause  error    // underlying failure, reachable through errors.Is and errors.As
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Code returns the wire code for err, or "internal_error" for errors that
// are not domain errors.
func Code(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != nil {
		return de.Kind.Error()
	}
	for _, kind := range []error{
		ErrMissingRequiredFields, ErrMissingWorkflowFields, ErrCircularDependency,
		ErrUnknownDependency, ErrDuplicateInstructionID, ErrInvalidInstruction,
		ErrWorkflowNotFound, ErrWorkflowAlreadyRunning, ErrWorkflowAlreadyCompleted,
		ErrWorkflowPreviouslyFailed, ErrWorkflowCancelled, ErrNotCached,
		ErrInstructionFailed, ErrCoordinatorStopped,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal_error"
}

// MissingFields builds a missing_* error naming the absent keys
func MissingFields(kind error, fields []string) error {
	return &Error{Kind: kind, Msg: strings.Join(fields, ", "), Fields: fields}
}

// CircularDependency reports the instruction reached on its own visiting path
func CircularDependency(id string) error {
	return &Error{Kind: ErrCircularDependency, Msg: id, ID: id}
}

// NotFound reports an unknown workflow id
func NotFound(workflowID string) error {
	return &Error{Kind: ErrWorkflowNotFound, Msg: workflowID, ID: workflowID}
}

// Errorf builds a domain error of the given kind
func Errorf(kind error, id string, format string, args ...interface{}) error {
	return &Error{Kind: kind, ID: id, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a domain error of the given kind around cause
func Wrap(kind error, id string, cause error) error {
	return &Error{Kind: kind, ID: id, Msg: fmt.Sprintf("%s: %v", id, cause), Cause: cause}
}
