package model

import "time"

// QuestionStatus is the moderation lifecycle state of a question.
type QuestionStatus string

const (
	StatusPending  QuestionStatus = "pending"
	StatusApproved QuestionStatus = "approved"
	StatusMerged   QuestionStatus = "merged"
	StatusRemoved  QuestionStatus = "removed"
)

// Valid reports whether s is a known lifecycle state.
func (s QuestionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusMerged, StatusRemoved:
		return true
	}
	return false
}

// Question represents a voter-submitted question in a contest.
// upvotes/downvotes/rank_score are denormalized; the vote ledger is the
// source of truth and they are always recomputable by replay.
type Question struct {
	ID                int64          `json:"id"`
	ContestID         int64          `json:"contestId"`
	AuthorID          string         `json:"authorId"`
	Text              string         `json:"text"`
	Embedding         []float64      `json:"-"`
	ClusterID         *int64         `json:"clusterId,omitempty"`
	Status            QuestionStatus `json:"status"`
	Upvotes           int            `json:"upvotes"`
	Downvotes         int            `json:"downvotes"`
	WeightedUpvotes   float64        `json:"-"`
	WeightedDownvotes float64        `json:"-"`
	RankScore         float64        `json:"rankScore"`
	IsFlagged         int            `json:"isFlagged"`
	ModerationNotes   *string        `json:"moderationNotes,omitempty"`
	PendingClustering bool           `json:"-"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// QuestionVersion is an immutable snapshot of a question's text and embedding
// at a point in time. Never mutated or deleted.
type QuestionVersion struct {
	ID            int64     `json:"id"`
	QuestionID    int64     `json:"questionId"`
	VersionNumber int       `json:"versionNumber"`
	Text          string    `json:"text"`
	Embedding     []float64 `json:"-"`
	AuthorID      string    `json:"authorId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SubmitQuestionRequest is the API request body for submitting a question.
type SubmitQuestionRequest struct {
	ContestID int64  `json:"contestId"`
	AuthorID  string `json:"authorId"`
	Text      string `json:"text"`
}

// EditQuestionRequest is the API request body for editing a question's text.
type EditQuestionRequest struct {
	AuthorID string `json:"authorId"`
	Text     string `json:"text"`
}

// QuestionResponse is the API response for a single question.
type QuestionResponse struct {
	Question
	ClusterDecision string `json:"clusterDecision,omitempty"`
}

// RankedPage is one page of questions ordered by rank_score desc, id asc.
type RankedPage struct {
	ContestID int64      `json:"contestId"`
	Page      int        `json:"page"`
	PageSize  int        `json:"pageSize"`
	Total     int        `json:"total"`
	Questions []Question `json:"questions"`
}
