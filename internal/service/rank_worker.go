package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
)

// RankWorker listens for PostgreSQL NOTIFY on the 'rank_changes' channel and
// batches rank recomputations: if fifty votes hit question X inside one batch
// window, it recomputes once. The window is the staleness bound for displayed
// ranks — with the default 2s window, a question's rank is correct within
// roughly two seconds of its last vote.
type RankWorker struct {
	pool      *pgxpool.Pool
	rankSvc   *RankService
	questions *repository.QuestionRepo
	clusters  *repository.ClusterRepo
	cache     *CacheService
	cfg       *config.Config
	logger    zerolog.Logger

	mu      sync.Mutex
	pending map[int64]struct{} // question IDs waiting for recomputation
}

func NewRankWorker(pool *pgxpool.Pool, rankSvc *RankService, questions *repository.QuestionRepo, clusters *repository.ClusterRepo, cache *CacheService, cfg *config.Config, logger zerolog.Logger) *RankWorker {
	return &RankWorker{
		pool:      pool,
		rankSvc:   rankSvc,
		questions: questions,
		clusters:  clusters,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		pending:   make(map[int64]struct{}),
	}
}

// Start begins listening for rank_changes notifications and processing batches.
func (w *RankWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("batch_window", w.cfg.RankBatchWindow).Msg("rank-worker: starting")

	for {
		if err := w.listenLoop(ctx); err != nil {
			if ctx.Err() != nil {
				w.logger.Info().Msg("rank-worker: stopping (context cancelled)")
				return
			}
			w.logger.Error().Err(err).Msg("rank-worker: listen error, reconnecting in 5s")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				w.logger.Info().Msg("rank-worker: stopping (context cancelled)")
				return
			}
		}
	}
}

// listenLoop acquires a dedicated connection, LISTENs on rank_changes, and
// feeds notifications into the pending set drained by flushLoop.
func (w *RankWorker) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN rank_changes"); err != nil {
		return err
	}
	w.logger.Info().Msg("rank-worker: listening on rank_changes")

	flushCtx, flushCancel := context.WithCancel(ctx)
	defer flushCancel()
	go w.flushLoop(flushCtx)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		questionID, err := strconv.ParseInt(notification.Payload, 10, 64)
		if err != nil || questionID == 0 {
			continue
		}

		w.mu.Lock()
		w.pending[questionID] = struct{}{}
		w.mu.Unlock()
	}
}

// flushLoop periodically drains the pending set and recomputes ranks.
func (w *RankWorker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.RankBatchWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			// Final flush before exit
			w.flush(context.Background())
			return
		}
	}
}

// flush recomputes each pending question's rank and lazily refreshes its
// cluster's representative, then drops stale cache entries.
func (w *RankWorker) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[int64]struct{})
	w.mu.Unlock()

	start := time.Now()
	recomputed := 0
	for questionID := range batch {
		if _, err := w.rankSvc.Recalculate(ctx, questionID, w.cfg.Scoring); err != nil {
			w.logger.Error().Err(err).Int64("question_id", questionID).Msg("rank-worker: recompute failed")
			continue
		}

		q, err := w.questions.GetByID(ctx, questionID)
		if err != nil {
			w.logger.Error().Err(err).Int64("question_id", questionID).Msg("rank-worker: reload failed")
			continue
		}

		// Representative selection is lazy: it rides the rank flush instead
		// of cascading on every membership or score change.
		if q.ClusterID != nil {
			if err := w.clusters.RefreshRepresentative(ctx, *q.ClusterID); err != nil {
				w.logger.Error().Err(err).Int64("cluster_id", *q.ClusterID).Msg("rank-worker: representative refresh failed")
			}
		}

		if w.cache != nil {
			if err := w.cache.InvalidateQuestion(ctx, questionID); err != nil {
				w.logger.Warn().Err(err).Int64("question_id", questionID).Msg("rank-worker: cache invalidate failed")
			}
			if err := w.cache.InvalidateContest(ctx, q.ContestID); err != nil {
				w.logger.Warn().Err(err).Int64("contest_id", q.ContestID).Msg("rank-worker: cache invalidate failed")
			}
		}

		recomputed++
	}

	if recomputed > 0 {
		w.logger.Info().
			Int("recomputed", recomputed).
			Int("notified", len(batch)).
			Dur("elapsed", time.Since(start)).
			Msg("rank-worker: batch complete")
	}
}
