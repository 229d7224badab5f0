package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/db"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
	"github.com/calebnewtonusc/CivicQ-sub006/pkg/vector"
)

// ClusterService assigns questions to semantic duplicate clusters by cosine
// similarity against per-contest cluster centroids. All clustering within one
// contest runs under the contest advisory lock, so two near-identical
// questions can never race into two separate clusters; different contests
// proceed fully in parallel.
type ClusterService struct {
	pool     *pgxpool.Pool
	clusters *repository.ClusterRepo
	votes    *repository.VoteRepo
	audit    *repository.AuditRepo
	logger   zerolog.Logger
}

func NewClusterService(pool *pgxpool.Pool, clusters *repository.ClusterRepo, votes *repository.VoteRepo, audit *repository.AuditRepo, logger zerolog.Logger) *ClusterService {
	return &ClusterService{pool: pool, clusters: clusters, votes: votes, audit: audit, logger: logger}
}

// NearestCluster returns the cluster whose centroid is most similar to the
// embedding, with the similarity. Pure; returns nil for an empty cluster set.
func NearestCluster(embedding []float64, clusters []model.Cluster) (*model.Cluster, float64) {
	var best *model.Cluster
	bestSim := -1.0
	for i := range clusters {
		sim := vector.CosineSimilarity(embedding, clusters[i].Centroid)
		if sim > bestSim {
			bestSim = sim
			best = &clusters[i]
		}
	}
	return best, bestSim
}

// Decide is the pure threshold logic of AssignCluster: at or above the merge
// threshold the question joins the nearest cluster; in [soft, merge) it is
// flagged for human review; below soft it seeds a new singleton cluster.
func Decide(similarity float64, policy config.ClusteringPolicy) model.ClusterDecisionKind {
	switch {
	case similarity >= policy.MergeThreshold:
		return model.DecisionMergedInto
	case similarity >= policy.SoftThreshold:
		return model.DecisionFlagged
	default:
		return model.DecisionNewCluster
	}
}

// AssignCluster places a question into the contest's cluster set. When the
// joined cluster already has an approved member, the question merges straight
// into it with no human step: its weighted vote aggregates (zero for fresh
// submissions) are summed into the survivor.
func (s *ClusterService) AssignCluster(ctx context.Context, q *model.Question, embedding []float64, policy config.ClusteringPolicy) (*model.ClusterDecision, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := db.AcquireTxLock(ctx, tx, db.ContestLockKey(q.ContestID)); err != nil {
		return nil, err
	}

	decision, err := s.assignTx(ctx, tx, q, embedding, policy)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, repository.MapError(err)
	}

	s.logger.Info().
		Int64("question_id", q.ID).
		Int64("contest_id", q.ContestID).
		Str("decision", string(decision.Kind)).
		Float64("similarity", decision.Similarity).
		Msg("cluster assignment")

	return decision, nil
}

// Reassign re-runs clustering after a text edit replaced the question's
// embedding. The old embedding is first removed from the current cluster's
// running mean; if the new vector no longer clears the merge threshold
// against that cluster the question is detached and evaluated as if new.
func (s *ClusterService) Reassign(ctx context.Context, q *model.Question, oldEmbedding, newEmbedding []float64, policy config.ClusteringPolicy) (*model.ClusterDecision, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := db.AcquireTxLock(ctx, tx, db.ContestLockKey(q.ContestID)); err != nil {
		return nil, err
	}

	var decision *model.ClusterDecision
	if q.ClusterID == nil {
		decision, err = s.assignTx(ctx, tx, q, newEmbedding, policy)
	} else {
		decision, err = s.reassignMemberTx(ctx, tx, q, oldEmbedding, newEmbedding, policy)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, repository.MapError(err)
	}
	return decision, nil
}

func (s *ClusterService) reassignMemberTx(ctx context.Context, tx pgx.Tx, q *model.Question, oldEmbedding, newEmbedding []float64, policy config.ClusteringPolicy) (*model.ClusterDecision, error) {
	current, err := s.clusterByIDTx(ctx, tx, *q.ClusterID)
	if err != nil {
		return nil, err
	}

	// Centroid without this member's old vector.
	reduced := vector.RemoveFromMean(current.Centroid, current.MemberCount, oldEmbedding)

	if reduced != nil && vector.CosineSimilarity(newEmbedding, reduced) >= policy.MergeThreshold {
		// Still belongs; fold the new vector back in.
		restored := vector.UpdateMean(reduced, current.MemberCount-1, newEmbedding)
		_, err = tx.Exec(ctx, `
			UPDATE clusters SET centroid = $2, updated_at = NOW() WHERE id = $1`,
			current.ID, restored)
		if err != nil {
			return nil, err
		}
		return &model.ClusterDecision{Kind: model.DecisionSameCluster, ClusterID: current.ID}, nil
	}

	if err := s.clusters.DetachMemberTx(ctx, tx, current.ID, q.ID, reduced); err != nil {
		return nil, err
	}
	_, err = s.audit.AppendTx(ctx, tx, model.EventQuestionDetached, nil, "question", q.ID,
		map[string]any{"clusterId": current.ID},
		model.SeverityInfo)
	if err != nil {
		return nil, err
	}

	q.ClusterID = nil
	return s.assignTx(ctx, tx, q, newEmbedding, policy)
}

// assignTx is the shared assignment path. The caller holds the contest lock.
func (s *ClusterService) assignTx(ctx context.Context, tx pgx.Tx, q *model.Question, embedding []float64, policy config.ClusteringPolicy) (*model.ClusterDecision, error) {
	clusters, err := s.clusters.ListByContestTx(ctx, tx, q.ContestID)
	if err != nil {
		return nil, err
	}

	// Skip the question's own cluster when it was just detached.
	candidates := clusters[:0:0]
	for _, c := range clusters {
		if q.ClusterID != nil && c.ID == *q.ClusterID {
			continue
		}
		candidates = append(candidates, c)
	}

	best, bestSim := NearestCluster(embedding, candidates)

	switch Decide(bestSim, policy) {
	case model.DecisionMergedInto:
		return s.joinTx(ctx, tx, q, best, bestSim, embedding)

	case model.DecisionFlagged:
		return s.flagTx(ctx, tx, q, best, bestSim, embedding)

	default:
		clusterID, err := s.clusters.CreateTx(ctx, tx, q.ContestID, q.ID, embedding)
		if err != nil {
			return nil, err
		}
		_, err = s.audit.AppendTx(ctx, tx, model.EventQuestionClustered, nil, "question", q.ID,
			map[string]any{"clusterId": clusterID, "decision": model.DecisionNewCluster},
			model.SeverityInfo)
		if err != nil {
			return nil, err
		}
		return &model.ClusterDecision{Kind: model.DecisionNewCluster, ClusterID: clusterID}, nil
	}
}

// joinTx adds the question to the nearest cluster, then auto-merges it when
// the cluster has an approved member. This automatic path may merge a
// still-pending question; the manual action graph stays strict.
func (s *ClusterService) joinTx(ctx context.Context, tx pgx.Tx, q *model.Question, target *model.Cluster, sim float64, embedding []float64) (*model.ClusterDecision, error) {
	newCentroid := vector.UpdateMean(target.Centroid, target.MemberCount, embedding)
	if err := s.clusters.AddMemberTx(ctx, tx, target.ID, q.ID, newCentroid); err != nil {
		return nil, err
	}

	_, err := s.audit.AppendTx(ctx, tx, model.EventQuestionClustered, nil, "question", q.ID,
		map[string]any{"clusterId": target.ID, "similarity": sim, "decision": model.DecisionMergedInto},
		model.SeverityInfo)
	if err != nil {
		return nil, err
	}

	survivorID, err := s.clusters.ApprovedMemberTx(ctx, tx, target.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// No approved member yet; the question stays a live cluster
			// member and continues through moderation on its own.
			return &model.ClusterDecision{Kind: model.DecisionSameCluster, ClusterID: target.ID, Similarity: sim}, nil
		}
		return nil, err
	}
	if survivorID == q.ID {
		return &model.ClusterDecision{Kind: model.DecisionSameCluster, ClusterID: target.ID, Similarity: sim}, nil
	}

	if err := s.votes.RedistributeTx(ctx, tx, q.ID, survivorID); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE questions SET status = 'merged', updated_at = NOW() WHERE id = $1`, q.ID)
	if err != nil {
		return nil, err
	}
	_, err = s.audit.AppendTx(ctx, tx, model.EventModerationMerged, nil, "question", q.ID,
		map[string]any{"survivorId": survivorID, "similarity": sim, "auto": true},
		model.SeverityInfo)
	if err != nil {
		return nil, err
	}

	// Survivor absorbed this question's weighted aggregates.
	if _, err := tx.Exec(ctx, `SELECT pg_notify('rank_changes', $1::text)`, survivorID); err != nil {
		return nil, err
	}

	return &model.ClusterDecision{
		Kind:       model.DecisionMergedInto,
		ClusterID:  target.ID,
		SurvivorID: survivorID,
		Similarity: sim,
	}, nil
}

// flagTx marks a possible duplicate for human review without auto-merging.
// The question still seeds its own singleton cluster so every clustered
// question has a home; a moderator merge can collapse it later.
func (s *ClusterService) flagTx(ctx context.Context, tx pgx.Tx, q *model.Question, near *model.Cluster, sim float64, embedding []float64) (*model.ClusterDecision, error) {
	clusterID, err := s.clusters.CreateTx(ctx, tx, q.ContestID, q.ID, embedding)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("possible duplicate of cluster %d (similarity %.3f)", near.ID, sim)
	_, err = tx.Exec(ctx, `
		UPDATE questions
		SET is_flagged = is_flagged + 1,
		    moderation_notes = COALESCE(moderation_notes || E'\n', '') || $2,
		    updated_at = NOW()
		WHERE id = $1`, q.ID, note)
	if err != nil {
		return nil, err
	}

	_, err = s.audit.AppendTx(ctx, tx, model.EventQuestionFlagged, nil, "question", q.ID,
		map[string]any{"nearClusterId": near.ID, "similarity": sim, "note": note},
		model.SeverityWarning)
	if err != nil {
		return nil, err
	}

	return &model.ClusterDecision{Kind: model.DecisionFlagged, ClusterID: clusterID, Similarity: sim}, nil
}

func (s *ClusterService) clusterByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Cluster, error) {
	var c model.Cluster
	err := tx.QueryRow(ctx, `
		SELECT id, contest_id, representative_question_id, centroid, member_count,
		       created_at, updated_at
		FROM clusters WHERE id = $1`, id,
	).Scan(&c.ID, &c.ContestID, &c.RepresentativeQuestionID, &c.Centroid, &c.MemberCount,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, repository.MapError(err)
	}
	return &c, nil
}
