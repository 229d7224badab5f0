package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

type VoteRepo struct {
	pool  *pgxpool.Pool
	audit *AuditRepo
}

func NewVoteRepo(pool *pgxpool.Pool, audit *AuditRepo) *VoteRepo {
	return &VoteRepo{pool: pool, audit: audit}
}

// CastVote applies one vote mutation with toggle semantics, atomically:
//   - no prior vote: insert it and add its weight to the matching aggregate
//   - prior vote with the other value: flip it, moving weight between sides
//   - prior vote with the same value: retract it (toggle off)
//
// The question row lock serializes racing votes on the same question; the
// unique (user_id, question_id) key makes a double insert impossible. The
// audit entry and the rank-recompute notify ride the same transaction, so
// either everything commits or nothing does.
func (r *VoteRepo) CastVote(ctx context.Context, userID string, questionID int64, value int, weight, riskScore float64) (*model.VoteResult, error) {
	if value != model.VoteUp && value != model.VoteDown {
		return nil, fmt.Errorf("%w: vote value must be +1 or -1", model.ErrInvalidInput)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	q, err := lockQuestion(ctx, tx, questionID)
	if err != nil {
		return nil, err
	}
	if q.Status != model.StatusApproved {
		return nil, fmt.Errorf("%w: question is %s, votes require approved", model.ErrInvalidState, q.Status)
	}

	var prevValue int
	var prevWeight float64
	err = tx.QueryRow(ctx, `
		SELECT value, weight FROM votes
		WHERE user_id = $1 AND question_id = $2`,
		userID, questionID).Scan(&prevValue, &prevWeight)
	isNewVote := err == pgx.ErrNoRows
	if err != nil && !isNewVote {
		return nil, err
	}

	var outcome model.VoteOutcome
	switch {
	case isNewVote:
		outcome = model.VoteCast
		_, err = tx.Exec(ctx, `
			INSERT INTO votes (user_id, question_id, value, weight, device_risk_score)
			VALUES ($1, $2, $3, $4, $5)`,
			userID, questionID, value, weight, riskScore)
		if err != nil {
			return nil, MapError(err)
		}
		applyDelta(q, value, 1, weight)

	case prevValue == value:
		// Toggle: re-submitting the same value retracts the vote.
		outcome = model.VoteRetracted
		_, err = tx.Exec(ctx, `
			DELETE FROM votes WHERE user_id = $1 AND question_id = $2`,
			userID, questionID)
		if err != nil {
			return nil, err
		}
		applyDelta(q, prevValue, -1, -prevWeight)

	default:
		// Flip: move the previous weight off the old side, put the new
		// weight on the new side.
		outcome = model.VoteFlipped
		_, err = tx.Exec(ctx, `
			UPDATE votes SET value = $3, weight = $4, device_risk_score = $5, created_at = NOW()
			WHERE user_id = $1 AND question_id = $2`,
			userID, questionID, value, weight, riskScore)
		if err != nil {
			return nil, err
		}
		applyDelta(q, prevValue, -1, -prevWeight)
		applyDelta(q, value, 1, weight)
	}

	_, err = tx.Exec(ctx, `
		UPDATE questions
		SET upvotes = $2, downvotes = $3, weighted_upvotes = $4, weighted_downvotes = $5,
		    updated_at = NOW()
		WHERE id = $1`,
		questionID, q.Upvotes, q.Downvotes, q.WeightedUpvotes, q.WeightedDownvotes)
	if err != nil {
		return nil, err
	}

	_, err = r.audit.AppendTx(ctx, tx, voteEventType(outcome), &userID, "question", questionID,
		map[string]any{"value": value, "weight": weight, "outcome": outcome},
		model.SeverityInfo)
	if err != nil {
		return nil, err
	}

	// Schedule a deferred rank recompute; the rank worker batches these.
	_, err = tx.Exec(ctx, `SELECT pg_notify('rank_changes', $1::text)`, questionID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, MapError(err)
	}

	return &model.VoteResult{
		Outcome:           outcome,
		Upvotes:           q.Upvotes,
		Downvotes:         q.Downvotes,
		WeightedUpvotes:   q.WeightedUpvotes,
		WeightedDownvotes: q.WeightedDownvotes,
		Weight:            weight,
	}, nil
}

// Aggregates replays the ledger for one question. The ledger is the source of
// truth: the denormalized question counters must always equal this.
func (r *VoteRepo) Aggregates(ctx context.Context, questionID int64) (*model.VoteAggregates, error) {
	var agg model.VoteAggregates
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE value = 1),
			COUNT(*) FILTER (WHERE value = -1),
			COALESCE(SUM(weight) FILTER (WHERE value = 1), 0),
			COALESCE(SUM(weight) FILTER (WHERE value = -1), 0)
		FROM votes WHERE question_id = $1`,
		questionID).Scan(&agg.Upvotes, &agg.Downvotes, &agg.WeightedUpvotes, &agg.WeightedDownvotes)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// RedistributeTx folds a merged question's weighted aggregates into the
// survivor by summing, never by recount, preserving weight fidelity. Runs in
// the caller's merge transaction; both question rows must already be locked.
func (r *VoteRepo) RedistributeTx(ctx context.Context, tx pgx.Tx, fromID, toID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE questions s
		SET upvotes            = s.upvotes + m.upvotes,
		    downvotes          = s.downvotes + m.downvotes,
		    weighted_upvotes   = s.weighted_upvotes + m.weighted_upvotes,
		    weighted_downvotes = s.weighted_downvotes + m.weighted_downvotes,
		    updated_at         = NOW()
		FROM questions m
		WHERE s.id = $2 AND m.id = $1`,
		fromID, toID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE questions
		SET upvotes = 0, downvotes = 0, weighted_upvotes = 0, weighted_downvotes = 0,
		    updated_at = NOW()
		WHERE id = $1`, fromID)
	return err
}

func applyDelta(q *model.Question, value, count int, weight float64) {
	if value == model.VoteUp {
		q.Upvotes += count
		q.WeightedUpvotes += weight
		if q.WeightedUpvotes < 0 {
			q.WeightedUpvotes = 0
		}
	} else {
		q.Downvotes += count
		q.WeightedDownvotes += weight
		if q.WeightedDownvotes < 0 {
			q.WeightedDownvotes = 0
		}
	}
}

func voteEventType(outcome model.VoteOutcome) string {
	switch outcome {
	case model.VoteFlipped:
		return model.EventVoteFlipped
	case model.VoteRetracted:
		return model.EventVoteRetracted
	default:
		return model.EventVoteCast
	}
}
