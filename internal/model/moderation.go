package model

import "fmt"

// ModerationActionKind is the closed set of moderator actions.
type ModerationActionKind string

const (
	ActionApprove ModerationActionKind = "approve"
	ActionReject  ModerationActionKind = "reject"
	ActionMerge   ModerationActionKind = "merge_into"
	ActionRemove  ModerationActionKind = "remove"
)

// ModerationAction is the tagged-variant moderator request. Each kind carries
// only the fields it needs; malformed variants are rejected at the boundary.
type ModerationAction struct {
	Kind     ModerationActionKind `json:"action"`
	ActorID  string               `json:"actorId"`
	Reason   string               `json:"reason,omitempty"`
	TargetID int64                `json:"targetId,omitempty"` // merge_into only: survivor question id
}

// Validate rejects malformed action variants before they reach the state machine.
func (a *ModerationAction) Validate() error {
	switch a.Kind {
	case ActionApprove, ActionReject, ActionRemove:
		if a.TargetID != 0 {
			return fmt.Errorf("%w: %s takes no targetId", ErrInvalidInput, a.Kind)
		}
	case ActionMerge:
		if a.TargetID == 0 {
			return fmt.Errorf("%w: merge_into requires targetId", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, a.Kind)
	}
	if a.ActorID == "" {
		return fmt.Errorf("%w: actorId is required", ErrInvalidInput)
	}
	return nil
}

// ModerationResult is the API response after a moderation action.
type ModerationResult struct {
	QuestionID int64          `json:"questionId"`
	Status     QuestionStatus `json:"status"`
	Redundant  bool           `json:"redundant"`            // action replayed against an already-final state
	MergedInto int64          `json:"mergedInto,omitempty"` // survivor id when an approval folded into an approved duplicate
}
