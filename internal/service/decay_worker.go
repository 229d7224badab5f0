package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
)

const (
	decayPageSize   = 500
	deferredRetries = 100 // deferred-clustering questions retried per tick
)

// DecayWorker is a periodic background job with two duties: recompute rank
// scores for the recency decay (the boost changes with wall-clock time even
// with no new votes), and retry clustering for questions whose embedding
// lookup was deferred.
type DecayWorker struct {
	questions *repository.QuestionRepo
	rankSvc   *RankService
	qSvc      *QuestionService
	cfg       *config.Config
	logger    zerolog.Logger
	stopCh    chan struct{}
}

func NewDecayWorker(questions *repository.QuestionRepo, rankSvc *RankService, qSvc *QuestionService, cfg *config.Config, logger zerolog.Logger) *DecayWorker {
	return &DecayWorker{
		questions: questions,
		rankSvc:   rankSvc,
		qSvc:      qSvc,
		cfg:       cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic sweep loop. Runs one tick immediately, then every
// interval.
func (w *DecayWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.cfg.DecaySweepInterval).Msg("decay-worker: starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.cfg.DecaySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			w.logger.Info().Msg("decay-worker: stopping (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Info().Msg("decay-worker: stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *DecayWorker) Stop() {
	close(w.stopCh)
}

func (w *DecayWorker) tick(ctx context.Context) {
	start := time.Now()

	swept, err := w.sweepDecay(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("decay-worker: sweep error")
	}

	retried, clustered := w.retryDeferred(ctx)

	w.logger.Info().
		Int("ranks_swept", swept).
		Int("deferred_retried", retried).
		Int("deferred_clustered", clustered).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("decay-worker: tick complete")
}

// sweepDecay walks all approved questions in id pages and recomputes their
// rank. Recalculate only writes (and audits) when the score moved, so a calm
// contest produces no churn.
func (w *DecayWorker) sweepDecay(ctx context.Context) (int, error) {
	swept := 0
	var afterID int64

	for {
		page, err := w.questions.ListActive(ctx, decayPageSize, afterID)
		if err != nil {
			return swept, err
		}
		if len(page) == 0 {
			return swept, nil
		}

		for i := range page {
			if _, err := w.rankSvc.Recalculate(ctx, page[i].ID, w.cfg.Scoring); err != nil {
				w.logger.Error().Err(err).Int64("question_id", page[i].ID).Msg("decay-worker: recompute failed")
				continue
			}
			swept++
		}
		afterID = page[len(page)-1].ID
	}
}

// retryDeferred re-attempts clustering for questions that degraded to
// pending_clustering when the embedding service was unavailable.
func (w *DecayWorker) retryDeferred(ctx context.Context) (retried, clustered int) {
	pending, err := w.questions.ListPendingClustering(ctx, deferredRetries)
	if err != nil {
		w.logger.Error().Err(err).Msg("decay-worker: pending-clustering list failed")
		return 0, 0
	}

	for i := range pending {
		retried++
		if err := w.qSvc.RetryDeferred(ctx, &pending[i], w.cfg); err != nil {
			// Unavailable again is expected; the next tick retries.
			w.logger.Warn().Err(err).Int64("question_id", pending[i].ID).Msg("decay-worker: deferred clustering retry failed")
			continue
		}
		clustered++
	}
	return retried, clustered
}
