package model

import "time"

// Cluster groups semantically-duplicate questions within one contest.
// The centroid is the running mean of member embeddings; membership and
// centroid updates are serialized per contest.
type Cluster struct {
	ID                       int64     `json:"id"`
	ContestID                int64     `json:"contestId"`
	RepresentativeQuestionID *int64    `json:"representativeQuestionId,omitempty"`
	Centroid                 []float64 `json:"-"`
	MemberCount              int       `json:"memberCount"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// ClusterDecisionKind describes the outcome of assigning a question to a cluster.
type ClusterDecisionKind string

const (
	DecisionNewCluster  ClusterDecisionKind = "new_cluster"
	DecisionMergedInto  ClusterDecisionKind = "merged_into"
	DecisionSameCluster ClusterDecisionKind = "same_cluster"
	DecisionFlagged     ClusterDecisionKind = "flagged_possible_duplicate"
	DecisionDeferred    ClusterDecisionKind = "deferred"
)

// ClusterDecision is the result of AssignCluster.
type ClusterDecision struct {
	Kind       ClusterDecisionKind `json:"kind"`
	ClusterID  int64               `json:"clusterId,omitempty"`
	SurvivorID int64               `json:"survivorId,omitempty"`
	Similarity float64             `json:"similarity,omitempty"`
}
