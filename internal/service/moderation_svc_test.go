package service

import (
	"strings"
	"testing"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.QuestionStatus
		want     bool
	}{
		{model.StatusPending, model.StatusApproved, true},
		{model.StatusPending, model.StatusRemoved, true},
		{model.StatusApproved, model.StatusMerged, true},
		{model.StatusApproved, model.StatusRemoved, true},

		{model.StatusPending, model.StatusMerged, false},
		{model.StatusApproved, model.StatusPending, false},
		{model.StatusMerged, model.StatusApproved, false},
		{model.StatusMerged, model.StatusRemoved, false},
		{model.StatusRemoved, model.StatusApproved, false},
		{model.StatusRemoved, model.StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestAllowedTransitions_TerminalStates(t *testing.T) {
	if got := AllowedTransitions(model.StatusMerged); len(got) != 0 {
		t.Errorf("merged must be terminal, got transitions %v", got)
	}
	if got := AllowedTransitions(model.StatusRemoved); len(got) != 0 {
		t.Errorf("removed must be terminal, got transitions %v", got)
	}
}

func TestTargetStatus(t *testing.T) {
	// Replaying an action whose target state already holds is the redundant
	// no-op case, so the action -> state mapping must be stable.
	tests := []struct {
		kind model.ModerationActionKind
		want model.QuestionStatus
	}{
		{model.ActionApprove, model.StatusApproved},
		{model.ActionReject, model.StatusRemoved},
		{model.ActionRemove, model.StatusRemoved},
		{model.ActionMerge, model.StatusMerged},
	}
	for _, tt := range tests {
		if got := targetStatus(tt.kind); got != tt.want {
			t.Errorf("targetStatus(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestApproveOutcome(t *testing.T) {
	// A pending question whose cluster already holds an approved member must
	// merge into it on approval, never become a second approved duplicate.
	tests := []struct {
		name             string
		questionID       int64
		approvedMemberID int64
		lookupErr        error
		wantSurvivor     int64
		wantMerge        bool
		wantErr          bool
	}{
		{name: "no approved member approves", questionID: 7, lookupErr: model.ErrNotFound},
		{name: "self is the approved member", questionID: 7, approvedMemberID: 7},
		{name: "approved duplicate forces merge", questionID: 7, approvedMemberID: 3, wantSurvivor: 3, wantMerge: true},
		{name: "lookup failure propagates", questionID: 7, lookupErr: model.ErrConflictRetry, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			survivor, merge, err := approveOutcome(tt.questionID, tt.approvedMemberID, tt.lookupErr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if survivor != tt.wantSurvivor || merge != tt.wantMerge {
				t.Errorf("approveOutcome = (%d, %v), want (%d, %v)",
					survivor, merge, tt.wantSurvivor, tt.wantMerge)
			}
		})
	}
}

func TestModerationAction_Validate(t *testing.T) {
	actor := "abc123"
	tests := []struct {
		name    string
		action  model.ModerationAction
		wantErr bool
	}{
		{"approve ok", model.ModerationAction{Kind: model.ActionApprove, ActorID: actor}, false},
		{"remove ok", model.ModerationAction{Kind: model.ActionRemove, ActorID: actor, Reason: "spam"}, false},
		{"merge with target ok", model.ModerationAction{Kind: model.ActionMerge, ActorID: actor, TargetID: 9}, false},
		{"merge missing target", model.ModerationAction{Kind: model.ActionMerge, ActorID: actor}, true},
		{"approve with stray target", model.ModerationAction{Kind: model.ActionApprove, ActorID: actor, TargetID: 4}, true},
		{"unknown kind", model.ModerationAction{Kind: "escalate", ActorID: actor}, true},
		{"missing actor", model.ModerationAction{Kind: model.ActionApprove}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestCheckAutoApproval(t *testing.T) {
	policy := config.ModerationPolicy{
		MaxTextLen:            100,
		AuthorReportThreshold: 3,
		Blocklist:             []string{"buy now", "lottery"},
	}

	tests := []struct {
		name    string
		text    string
		reports int
		want    bool
	}{
		{"clean question", "What is the budget for parks?", 0, true},
		{"empty", "   ", 0, false},
		{"too long", strings.Repeat("a", 101), 0, false},
		{"blocklist hit", "Click here and BUY NOW please", 0, false},
		{"reported author at threshold", "Fine question?", 3, false},
		{"reported author below threshold", "Fine question?", 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := CheckAutoApproval(tt.text, tt.reports, policy)
			if got != tt.want {
				t.Errorf("CheckAutoApproval = %v (%s), want %v", got, reason, tt.want)
			}
			if !got && reason == "" {
				t.Error("rejection must carry a reason")
			}
		})
	}
}
