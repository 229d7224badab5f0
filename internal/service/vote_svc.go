package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
)

type VoteService struct {
	repo   *repository.VoteRepo
	trust  *TrustService
	cache  *CacheService
	logger zerolog.Logger
}

func NewVoteService(repo *repository.VoteRepo, trust *TrustService, cache *CacheService, logger zerolog.Logger) *VoteService {
	return &VoteService{repo: repo, trust: trust, cache: cache, logger: logger}
}

// Cast processes a vote submission. The device risk score feeds the vote's
// trust weight (never the rank directly); the ledger mutation, audit entry,
// and rank-recompute notify commit as one transaction inside the repository.
func (s *VoteService) Cast(ctx context.Context, req model.CastVoteRequest, votePolicy config.VotePolicy) (*model.VoteResult, error) {
	weight := s.trust.VoteWeight(req.DeviceRiskScore, votePolicy)

	result, err := s.repo.CastVote(ctx, req.UserID, req.QuestionID, req.Value, weight, req.DeviceRiskScore)
	if err != nil {
		return nil, err
	}

	// Displayed rank catches up when the rank worker flushes; drop the
	// cached question now so reads see fresh counters.
	if s.cache != nil {
		if err := s.cache.InvalidateQuestion(ctx, req.QuestionID); err != nil {
			s.logger.Warn().Err(err).Int64("question_id", req.QuestionID).Msg("cache invalidate failed")
		}
	}

	s.logger.Info().
		Int64("question_id", req.QuestionID).
		Str("outcome", string(result.Outcome)).
		Float64("weight", weight).
		Msg("vote processed")

	return result, nil
}
