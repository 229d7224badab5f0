package model

import "time"

// Vote values. +1 upvote, -1 downvote.
const (
	VoteUp   = 1
	VoteDown = -1
)

// Vote represents one user's vote on one question. Identity is the composite
// (user_id, question_id); a second vote from the same user never duplicates.
type Vote struct {
	UserID          string    `json:"userId"`
	QuestionID      int64     `json:"questionId"`
	Value           int       `json:"value"`
	Weight          float64   `json:"-"`
	DeviceRiskScore float64   `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
}

// VoteOutcome describes what a cast-vote call actually did.
type VoteOutcome string

const (
	VoteCast      VoteOutcome = "cast"      // first vote from this user
	VoteFlipped   VoteOutcome = "flipped"   // value changed +1 <-> -1
	VoteRetracted VoteOutcome = "retracted" // same value re-submitted (toggle)
)

// CastVoteRequest is the API request body for casting a vote.
type CastVoteRequest struct {
	QuestionID      int64   `json:"questionId"`
	UserID          string  `json:"userId"`
	Value           int     `json:"value"`
	DeviceRiskScore float64 `json:"deviceRiskScore"`
}

// VoteResult is the API response after a vote mutation.
type VoteResult struct {
	Outcome           VoteOutcome `json:"outcome"`
	Upvotes           int         `json:"upvotes"`
	Downvotes         int         `json:"downvotes"`
	WeightedUpvotes   float64     `json:"weightedUpvotes"`
	WeightedDownvotes float64     `json:"weightedDownvotes"`
	Weight            float64     `json:"weight"`
}

// VoteAggregates are the per-question counters the rank scorer consumes.
// Weighted sums drive ranking; raw counts are retained for display only.
type VoteAggregates struct {
	Upvotes           int
	Downvotes         int
	WeightedUpvotes   float64
	WeightedDownvotes float64
}
