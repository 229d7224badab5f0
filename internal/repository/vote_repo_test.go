package repository

import (
	"math"
	"testing"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

// voteAction is one ledger mutation as CastVote would apply it: the prior
// vote decides whether this is a cast, flip, or retract.
type voteAction struct {
	value  int
	weight float64
}

// replayVotes mirrors the counter maintenance inside CastVote for a single
// user against a single question, without a database.
func replayVotes(q *model.Question, actions []voteAction) []model.VoteOutcome {
	outcomes := make([]model.VoteOutcome, 0, len(actions))
	var prior *voteAction

	for i := range actions {
		a := actions[i]
		switch {
		case prior == nil:
			applyDelta(q, a.value, 1, a.weight)
			outcomes = append(outcomes, model.VoteCast)
			prior = &a
		case prior.value == a.value:
			// Same value again: toggle off.
			applyDelta(q, prior.value, -1, -prior.weight)
			outcomes = append(outcomes, model.VoteRetracted)
			prior = nil
		default:
			// Opposite value: flip.
			applyDelta(q, prior.value, -1, -prior.weight)
			applyDelta(q, a.value, 1, a.weight)
			outcomes = append(outcomes, model.VoteFlipped)
			prior = &a
		}
	}
	return outcomes
}

func aggEqual(q *model.Question, up, down int, wUp, wDown float64) bool {
	return q.Upvotes == up && q.Downvotes == down &&
		math.Abs(q.WeightedUpvotes-wUp) < 1e-9 &&
		math.Abs(q.WeightedDownvotes-wDown) < 1e-9
}

func TestVoteReplay_FirstVoteCasts(t *testing.T) {
	q := &model.Question{}
	outcomes := replayVotes(q, []voteAction{{model.VoteUp, 0.8}})

	if outcomes[0] != model.VoteCast {
		t.Errorf("outcome = %v, want cast", outcomes[0])
	}
	if !aggEqual(q, 1, 0, 0.8, 0) {
		t.Errorf("aggregates = %+v, want up=1 wUp=0.8", q)
	}
}

func TestVoteReplay_SameValueToggles(t *testing.T) {
	q := &model.Question{}
	outcomes := replayVotes(q, []voteAction{
		{model.VoteUp, 0.8},
		{model.VoteUp, 0.8},
	})

	if outcomes[1] != model.VoteRetracted {
		t.Errorf("second outcome = %v, want retracted", outcomes[1])
	}
	if !aggEqual(q, 0, 0, 0, 0) {
		t.Errorf("aggregates after toggle = %+v, want all zero", q)
	}
}

func TestVoteReplay_OppositeValueFlips(t *testing.T) {
	q := &model.Question{}
	outcomes := replayVotes(q, []voteAction{
		{model.VoteUp, 0.8},
		{model.VoteDown, 0.8},
	})

	if outcomes[1] != model.VoteFlipped {
		t.Errorf("second outcome = %v, want flipped", outcomes[1])
	}
	if !aggEqual(q, 0, 1, 0, 0.8) {
		t.Errorf("aggregates after flip = %+v, want down=1 wDown=0.8", q)
	}
}

func TestVoteReplay_ToggleAfterFlip(t *testing.T) {
	q := &model.Question{}
	outcomes := replayVotes(q, []voteAction{
		{model.VoteUp, 0.6},
		{model.VoteDown, 0.6},
		{model.VoteDown, 0.6},
	})

	want := []model.VoteOutcome{model.VoteCast, model.VoteFlipped, model.VoteRetracted}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("outcome[%d] = %v, want %v", i, outcomes[i], want[i])
		}
	}
	if !aggEqual(q, 0, 0, 0, 0) {
		t.Errorf("aggregates = %+v, want all zero after full toggle", q)
	}
}

func TestVoteReplay_RevoteAfterRetraction(t *testing.T) {
	// Retraction clears the ledger row, so voting again is a fresh cast.
	q := &model.Question{}
	outcomes := replayVotes(q, []voteAction{
		{model.VoteUp, 1.0},
		{model.VoteUp, 1.0},
		{model.VoteDown, 0.5},
	})

	if outcomes[2] != model.VoteCast {
		t.Errorf("post-retraction outcome = %v, want cast", outcomes[2])
	}
	if !aggEqual(q, 0, 1, 0, 0.5) {
		t.Errorf("aggregates = %+v, want down=1 wDown=0.5", q)
	}
}

func TestVoteReplay_FlipUsesCurrentWeight(t *testing.T) {
	// A flip removes the prior vote at its recorded weight and applies the
	// new one at the weight computed now; risk drift between the two calls
	// must not corrupt the aggregates.
	q := &model.Question{}
	replayVotes(q, []voteAction{
		{model.VoteUp, 1.0},
		{model.VoteDown, 0.4},
	})

	if !aggEqual(q, 0, 1, 0, 0.4) {
		t.Errorf("aggregates = %+v, want down=1 wDown=0.4", q)
	}
}

func TestApplyDelta_ClampsAtZero(t *testing.T) {
	// Float subtraction can land a hair below zero; counters clamp.
	q := &model.Question{WeightedUpvotes: 0.1}
	applyDelta(q, model.VoteUp, -1, -0.30000000000000004)
	if q.WeightedUpvotes != 0 {
		t.Errorf("weighted upvotes = %v, want clamped 0", q.WeightedUpvotes)
	}
}
