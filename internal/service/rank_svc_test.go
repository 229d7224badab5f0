package service

import (
	"math"
	"testing"
	"time"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

var testPolicy = config.ScoringPolicy{
	ControversyK:  0.5,
	RecencyK:      2.0,
	HalfLifeHours: 48,
}

func TestComputeRank_Deterministic(t *testing.T) {
	agg := model.VoteAggregates{WeightedUpvotes: 12.5, WeightedDownvotes: 3.25}
	age := 7 * time.Hour

	first := ComputeRank(agg, age, testPolicy)
	for i := 0; i < 10; i++ {
		if got := ComputeRank(agg, age, testPolicy); got != first {
			t.Fatalf("run %d: score %v differs from first run %v", i, got, first)
		}
	}
}

func TestComputeRank_NetScore(t *testing.T) {
	// No downvotes, no controversy penalty; fresh question gets full boost.
	agg := model.VoteAggregates{WeightedUpvotes: 10}
	got := ComputeRank(agg, 0, testPolicy)
	want := 10.0 + testPolicy.RecencyK
	if !almostEqual(got, want) {
		t.Errorf("rank = %v, want %v", got, want)
	}
}

func TestComputeRank_ControversyPenalty(t *testing.T) {
	// Same net total, different splits: the one-sided question must outrank
	// the contested one.
	oneSided := model.VoteAggregates{WeightedUpvotes: 10, WeightedDownvotes: 0}
	contested := model.VoteAggregates{WeightedUpvotes: 60, WeightedDownvotes: 50}

	age := 100 * 24 * time.Hour // old enough that recency is negligible
	if a, b := ComputeRank(oneSided, age, testPolicy), ComputeRank(contested, age, testPolicy); a <= b {
		t.Errorf("one-sided rank %v should exceed contested rank %v at equal net", a, b)
	}

	// Exact value: 60 - 50 - 0.5*50 = -15 plus the tiny recency tail.
	got := ComputeRank(contested, age, testPolicy)
	recency := testPolicy.RecencyK * math.Exp(-2400.0/testPolicy.HalfLifeHours)
	if !almostEqual(got, -15+recency) {
		t.Errorf("contested rank = %v, want %v", got, -15+recency)
	}
}

func TestComputeRank_RecencyDecay(t *testing.T) {
	agg := model.VoteAggregates{WeightedUpvotes: 5}

	fresh := ComputeRank(agg, 0, testPolicy)
	atHalfLife := ComputeRank(agg, 48*time.Hour, testPolicy)
	old := ComputeRank(agg, 1000*time.Hour, testPolicy)

	if fresh <= atHalfLife || atHalfLife <= old {
		t.Fatalf("recency must decay monotonically: fresh=%v half=%v old=%v", fresh, atHalfLife, old)
	}

	// At exactly one half-life the boost is RecencyK/e.
	wantBoost := testPolicy.RecencyK * math.Exp(-1)
	if !almostEqual(atHalfLife-5, wantBoost) {
		t.Errorf("half-life boost = %v, want %v", atHalfLife-5, wantBoost)
	}
}

func TestComputeRank_NegativeAgeClamped(t *testing.T) {
	// Clock skew can produce a created_at in the future; the boost must cap
	// at RecencyK rather than grow without bound.
	agg := model.VoteAggregates{WeightedUpvotes: 1}
	got := ComputeRank(agg, -3*time.Hour, testPolicy)
	want := ComputeRank(agg, 0, testPolicy)
	if !almostEqual(got, want) {
		t.Errorf("negative age rank = %v, want clamped %v", got, want)
	}
}

func TestComputeRank_ZeroHalfLife(t *testing.T) {
	policy := config.ScoringPolicy{ControversyK: 0.5, RecencyK: 2.0, HalfLifeHours: 0}
	agg := model.VoteAggregates{WeightedUpvotes: 4, WeightedDownvotes: 1}
	got := ComputeRank(agg, time.Hour, policy)
	if !almostEqual(got, 4-1-0.5*1) {
		t.Errorf("zero half-life rank = %v, want %v (no recency term)", got, 2.5)
	}
}

func TestRankLess_Ordering(t *testing.T) {
	high := &model.Question{ID: 5, RankScore: 10}
	low := &model.Question{ID: 1, RankScore: 2}

	if !RankLess(high, low) {
		t.Error("higher rank must sort first")
	}
	if RankLess(low, high) {
		t.Error("lower rank must not sort first")
	}
}

func TestRankLess_TieBreakByID(t *testing.T) {
	earlier := &model.Question{ID: 3, RankScore: 7}
	later := &model.Question{ID: 9, RankScore: 7}

	if !RankLess(earlier, later) {
		t.Error("equal ranks must break ties by earlier id")
	}
	if RankLess(later, earlier) {
		t.Error("later id must not precede earlier id on a tie")
	}
}
