package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/embedding"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
)

// QuestionService orchestrates the submission pipeline: embed, persist,
// cluster, auto-moderate. An embedding outage defers clustering instead of
// failing the submission; a question may exist briefly unclustered but is
// never lost.
type QuestionService struct {
	repo       *repository.QuestionRepo
	embedder   embedding.Embedder
	clusterer  *ClusterService
	moderation *ModerationService
	cache      *CacheService
	logger     zerolog.Logger
}

func NewQuestionService(repo *repository.QuestionRepo, embedder embedding.Embedder, clusterer *ClusterService, moderation *ModerationService, cache *CacheService, logger zerolog.Logger) *QuestionService {
	return &QuestionService{
		repo:       repo,
		embedder:   embedder,
		clusterer:  clusterer,
		moderation: moderation,
		cache:      cache,
		logger:     logger,
	}
}

// Submit runs a new question through the full intake pipeline.
func (s *QuestionService) Submit(ctx context.Context, req model.SubmitQuestionRequest, cfg *config.Config) (*model.QuestionResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: question text is required", model.ErrInvalidInput)
	}
	if cfg.Moderation.MaxTextLen > 0 && len(text) > cfg.Moderation.MaxTextLen {
		return nil, fmt.Errorf("%w: question text exceeds %d characters", model.ErrInvalidInput, cfg.Moderation.MaxTextLen)
	}
	if req.ContestID == 0 || req.AuthorID == "" {
		return nil, fmt.Errorf("%w: contestId and authorId are required", model.ErrInvalidInput)
	}

	emb, err := s.embedder.Embed(ctx, text)
	switch {
	case errors.Is(err, model.ErrUnavailable):
		// Degrade: persist unclustered, retried by the background sweep.
		s.logger.Warn().Err(err).Int64("contest_id", req.ContestID).Msg("embedding unavailable, deferring clustering")
		q, createErr := s.repo.Create(ctx, req.ContestID, req.AuthorID, text, nil, true)
		if createErr != nil {
			return nil, createErr
		}
		return &model.QuestionResponse{Question: *q, ClusterDecision: string(model.DecisionDeferred)}, nil
	case err != nil:
		return nil, err
	}

	q, err := s.repo.Create(ctx, req.ContestID, req.AuthorID, text, emb, false)
	if err != nil {
		return nil, err
	}

	decision, err := s.clusterer.AssignCluster(ctx, q, emb, cfg.Clustering)
	if err != nil {
		return nil, err
	}

	if decision.Kind == model.DecisionMergedInto {
		refreshed, err := s.repo.GetByID(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		return &model.QuestionResponse{Question: *refreshed, ClusterDecision: string(decision.Kind)}, nil
	}

	// Flagged possible duplicates wait for a human decision; everything else
	// goes through the automatic approval gate.
	if decision.Kind != model.DecisionFlagged {
		if err := s.maybeAutoApprove(ctx, q, text, cfg.Moderation); err != nil {
			return nil, err
		}
	}

	refreshed, err := s.repo.GetByID(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return &model.QuestionResponse{Question: *refreshed, ClusterDecision: string(decision.Kind)}, nil
}

// Edit replaces the question text, snapshots a new version, and re-runs
// clustering against the new embedding.
func (s *QuestionService) Edit(ctx context.Context, id int64, req model.EditQuestionRequest, cfg *config.Config) (*model.QuestionResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: question text is required", model.ErrInvalidInput)
	}
	if req.AuthorID == "" {
		return nil, fmt.Errorf("%w: authorId is required", model.ErrInvalidInput)
	}

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	emb, err := s.embedder.Embed(ctx, text)
	if errors.Is(err, model.ErrUnavailable) {
		s.logger.Warn().Err(err).Int64("question_id", id).Msg("embedding unavailable on edit, deferring re-clustering")
		q, _, editErr := s.repo.Edit(ctx, id, req.AuthorID, text, nil, true)
		if editErr != nil {
			return nil, editErr
		}
		s.invalidate(ctx, q)
		return &model.QuestionResponse{Question: *q, ClusterDecision: string(model.DecisionDeferred)}, nil
	}
	if err != nil {
		return nil, err
	}

	q, _, err := s.repo.Edit(ctx, id, req.AuthorID, text, emb, false)
	if err != nil {
		return nil, err
	}

	decision, err := s.clusterer.Reassign(ctx, q, before.Embedding, emb, cfg.Clustering)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, q)

	refreshed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.QuestionResponse{Question: *refreshed, ClusterDecision: string(decision.Kind)}, nil
}

// GetByID returns one question, cache-aside.
func (s *QuestionService) GetByID(ctx context.Context, id int64) ([]byte, error) {
	if s.cache != nil {
		if data, err := s.cache.GetQuestion(ctx, id); err == nil && data != nil {
			return data, nil
		}
	}

	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetQuestion(ctx, id, q); err != nil {
			s.logger.Warn().Err(err).Int64("question_id", id).Msg("cache set failed")
		}
	}
	return data, nil
}

// GetRankedPage returns one page of a contest's questions ordered by
// rank_score desc, id asc, cache-aside with a short TTL.
func (s *QuestionService) GetRankedPage(ctx context.Context, contestID int64, page, pageSize int) ([]byte, error) {
	if s.cache != nil {
		if data, err := s.cache.GetRankedPage(ctx, contestID, page, pageSize); err == nil && data != nil {
			return data, nil
		}
	}

	ranked, err := s.repo.ListRanked(ctx, contestID, page, pageSize)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(ranked)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRankedPage(ctx, contestID, page, pageSize, ranked); err != nil {
			s.logger.Warn().Err(err).Int64("contest_id", contestID).Msg("cache set failed")
		}
	}
	return data, nil
}

// RetryDeferred runs deferred clustering for one question: fetch the
// embedding that was unavailable at submission/edit time, then cluster and
// auto-moderate as if the question had just arrived.
func (s *QuestionService) RetryDeferred(ctx context.Context, q *model.Question, cfg *config.Config) error {
	emb, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return err // still unavailable; next sweep retries
	}

	oldEmb := q.Embedding
	if err := s.repo.UpdateEmbedding(ctx, q.ID, emb); err != nil {
		return err
	}

	var decision *model.ClusterDecision
	if q.ClusterID != nil {
		decision, err = s.clusterer.Reassign(ctx, q, oldEmb, emb, cfg.Clustering)
	} else {
		decision, err = s.clusterer.AssignCluster(ctx, q, emb, cfg.Clustering)
	}
	if err != nil {
		return err
	}

	if q.Status == model.StatusPending &&
		decision.Kind != model.DecisionMergedInto && decision.Kind != model.DecisionFlagged {
		if err := s.maybeAutoApprove(ctx, q, q.Text, cfg.Moderation); err != nil {
			return err
		}
	}
	return nil
}

func (s *QuestionService) maybeAutoApprove(ctx context.Context, q *model.Question, text string, policy config.ModerationPolicy) error {
	reports, err := s.repo.OpenReportCount(ctx, q.AuthorID)
	if err != nil {
		return err
	}

	ok, reason := CheckAutoApproval(text, reports, policy)
	if !ok {
		s.logger.Info().Int64("question_id", q.ID).Str("reason", reason).Msg("auto-approval withheld, awaiting moderator")
		return nil
	}
	return s.moderation.AutoApprove(ctx, q.ID)
}

func (s *QuestionService) invalidate(ctx context.Context, q *model.Question) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateQuestion(ctx, q.ID); err != nil {
		s.logger.Warn().Err(err).Int64("question_id", q.ID).Msg("cache invalidate failed")
	}
	if err := s.cache.InvalidateContest(ctx, q.ContestID); err != nil {
		s.logger.Warn().Err(err).Int64("contest_id", q.ContestID).Msg("cache invalidate failed")
	}
}
