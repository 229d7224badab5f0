package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an unknown question, cluster, or vote id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState signals an operation not valid for the target's current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidTransition signals a rejected moderation state machine transition.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnavailable signals a downed external dependency. Retry-safe.
	ErrUnavailable = errors.New("unavailable")
	// ErrInvalidInput signals malformed text or an out-of-range vote value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflictRetry signals transient contention on a per-question or
	// per-contest serialization point. Expected under load; retry with backoff.
	ErrConflictRetry = errors.New("conflict, retry")
)

// TransitionError wraps ErrInvalidTransition with the current state and the
// transitions that would have been accepted, so moderators see what is valid.
type TransitionError struct {
	From    QuestionStatus
	To      QuestionStatus
	Allowed []QuestionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s (allowed from %s: %v)",
		ErrInvalidTransition.Error(), e.From, e.To, e.From, e.Allowed)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NewTransitionError creates a rejected-transition error carrying the
// currently valid transitions.
func NewTransitionError(from, to QuestionStatus, allowed []QuestionStatus) error {
	return &TransitionError{From: from, To: to, Allowed: allowed}
}
