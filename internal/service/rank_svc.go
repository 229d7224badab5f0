package service

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
)

// RankService recomputes question rank scores after vote and moderation
// changes. It is the only component that writes rank_score.
type RankService struct {
	pool  *pgxpool.Pool
	audit *repository.AuditRepo
}

func NewRankService(pool *pgxpool.Pool, audit *repository.AuditRepo) *RankService {
	return &RankService{pool: pool, audit: audit}
}

// ComputeRank is the scoring function:
//
//	rank = weighted_up - weighted_down - k1*min(weighted_up, weighted_down)
//	     + k2 * exp(-age_hours / half_life_hours)
//
// The controversy penalty demotes near-even splits relative to one-sided
// questions with the same net total; the recency boost decays with age so
// the queue does not calcify around early arrivals. Pure given
// (aggregates, age, policy): identical inputs always yield an identical
// score.
func ComputeRank(agg model.VoteAggregates, age time.Duration, policy config.ScoringPolicy) float64 {
	net := agg.WeightedUpvotes - agg.WeightedDownvotes
	controversy := policy.ControversyK * math.Min(agg.WeightedUpvotes, agg.WeightedDownvotes)

	recency := 0.0
	if policy.HalfLifeHours > 0 {
		ageHours := age.Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		recency = policy.RecencyK * math.Exp(-ageHours/policy.HalfLifeHours)
	}

	return net - controversy + recency
}

// RankLess is the display ordering: higher rank first, lower id (earlier
// submission) breaks ties, guaranteeing a total order for pagination.
func RankLess(a, b *model.Question) bool {
	if a.RankScore != b.RankScore {
		return a.RankScore > b.RankScore
	}
	return a.ID < b.ID
}

// Recalculate recomputes and persists one question's rank score from its
// current aggregates. Writes and audits only when the score actually moved,
// so periodic decay sweeps do not flood the log with no-op entries.
func (s *RankService) Recalculate(ctx context.Context, questionID int64, policy config.ScoringPolicy) (float64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var agg model.VoteAggregates
	var prevScore float64
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		SELECT weighted_upvotes, weighted_downvotes, upvotes, downvotes, rank_score, created_at
		FROM questions WHERE id = $1
		FOR UPDATE`, questionID,
	).Scan(&agg.WeightedUpvotes, &agg.WeightedDownvotes, &agg.Upvotes, &agg.Downvotes, &prevScore, &createdAt)
	if err != nil {
		return 0, repository.MapError(err)
	}

	score := ComputeRank(agg, time.Since(createdAt), policy)
	if score == prevScore {
		return score, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		UPDATE questions SET rank_score = $2, updated_at = NOW() WHERE id = $1`,
		questionID, score)
	if err != nil {
		return 0, err
	}

	_, err = s.audit.AppendTx(ctx, tx, model.EventRankRecomputed, nil, "question", questionID,
		map[string]any{"previous": prevScore, "score": score},
		model.SeverityInfo)
	if err != nil {
		return 0, err
	}

	return score, tx.Commit(ctx)
}
