package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors that can occur during evaluation and recognition
// operations.
var (
	// ErrInvalidTransition indicates that a cycle or nomination state
	// transition was attempted from a state that does not permit it.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrCycleClosed indicates that a rating write was attempted against a
	// cycle that is no longer accepting submissions.
	ErrCycleClosed = errors.New("cycle closed")

	// ErrNominationClosed indicates that a vote was cast against a
	// nomination that has already reached a terminal state.
	ErrNominationClosed = errors.New("nomination closed")

	// ErrIncompleteInput indicates that an aggregation was attempted with
	// zero contributing ratings. The final score is left undefined rather
	// than defaulted to zero, since zero is a valid real score.
	ErrIncompleteInput = errors.New("incomplete input")
)

// TransitionError describes a rejected state transition.
// It records which entity was involved and the states on either side of the
// attempted move, so callers can report the misuse precisely.
type TransitionError struct {
	// Entity names the kind of record involved, e.g. "cycle" or "nomination".
	Entity string

	// From is the state the record was in when the transition was attempted.
	From string

	// To is the state the transition would have produced.
	To string

	// Err is the underlying sentinel error, typically ErrInvalidTransition.
	Err error
}

// Error implements the error interface for TransitionError.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s transition %s -> %s: %v", e.Entity, e.From, e.To, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is matching.
func (e *TransitionError) Unwrap() error { return e.Err }

// NewTransitionError creates a TransitionError for the given entity and states.
func NewTransitionError(entity, from, to string) *TransitionError {
	return &TransitionError{
		Entity: entity,
		From:   from,
		To:     to,
		Err:    ErrInvalidTransition,
	}
}

// ValidationError collects every constraint violated by a record, so a
// caller fixing a rejected submission sees all problems at once instead of
// resubmitting to discover them one by one.
type ValidationError struct {
	// Entity names the kind of record that failed, e.g. "evaluation_rating".
	Entity string

	// Failures holds one message per violated constraint.
	Failures []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Entity, strings.Join(e.Failures, "; "))
}

// Add records another failure message.
func (e *ValidationError) Add(msg string) { e.Failures = append(e.Failures, msg) }

// HasFailures reports whether any constraint was violated.
func (e *ValidationError) HasFailures() bool { return len(e.Failures) > 0 }

// NewValidationError creates an empty ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity}
}
