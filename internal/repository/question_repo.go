package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

const questionColumns = `
	id, contest_id, author_id, text, embedding, cluster_id, status,
	upvotes, downvotes, weighted_upvotes, weighted_downvotes,
	rank_score, is_flagged, moderation_notes, pending_clustering,
	created_at, updated_at`

type QuestionRepo struct {
	pool  *pgxpool.Pool
	audit *AuditRepo
}

func NewQuestionRepo(pool *pgxpool.Pool, audit *AuditRepo) *QuestionRepo {
	return &QuestionRepo{pool: pool, audit: audit}
}

// Create inserts a new pending question with its version-1 snapshot and the
// question.created audit entry, all in one transaction.
func (r *QuestionRepo) Create(ctx context.Context, contestID int64, authorID, text string, embedding []float64, pendingClustering bool) (*model.Question, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var q model.Question
	err = tx.QueryRow(ctx, `
		INSERT INTO questions (contest_id, author_id, text, embedding, status, pending_clustering)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING `+questionColumns,
		contestID, authorID, text, embedding, pendingClustering,
	).Scan(questionFields(&q)...)
	if err != nil {
		return nil, MapError(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO question_versions (question_id, version_number, text, embedding, author_id)
		VALUES ($1, 1, $2, $3, $4)`,
		q.ID, text, embedding, authorID)
	if err != nil {
		return nil, err
	}

	_, err = r.audit.AppendTx(ctx, tx, model.EventQuestionCreated, &authorID, "question", q.ID,
		map[string]any{"contestId": contestID, "textLen": len(text), "pendingClustering": pendingClustering},
		model.SeverityInfo)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, MapError(err)
	}
	return &q, nil
}

// Edit replaces the question's canonical text and records an immutable
// version snapshot. When the new embedding could not be fetched (deferred),
// the stored embedding is left in place and the question is marked
// pending_clustering for the retry sweep. Returns the new version number.
func (r *QuestionRepo) Edit(ctx context.Context, id int64, authorID, text string, embedding []float64, deferred bool) (*model.Question, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	q, err := lockQuestion(ctx, tx, id)
	if err != nil {
		return nil, 0, err
	}
	if q.Status == model.StatusRemoved || q.Status == model.StatusMerged {
		return nil, 0, fmt.Errorf("%w: cannot edit a %s question", model.ErrInvalidState, q.Status)
	}

	var version int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version_number), 0) + 1
		FROM question_versions WHERE question_id = $1`, id).Scan(&version)
	if err != nil {
		return nil, 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO question_versions (question_id, version_number, text, embedding, author_id)
		VALUES ($1, $2, $3, $4, $5)`,
		id, version, text, embedding, authorID)
	if err != nil {
		return nil, 0, err
	}

	if deferred {
		err = tx.QueryRow(ctx, `
			UPDATE questions
			SET text = $2, pending_clustering = true, updated_at = NOW()
			WHERE id = $1
			RETURNING `+questionColumns,
			id, text,
		).Scan(questionFields(q)...)
	} else {
		err = tx.QueryRow(ctx, `
			UPDATE questions
			SET text = $2, embedding = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING `+questionColumns,
			id, text, embedding,
		).Scan(questionFields(q)...)
	}
	if err != nil {
		return nil, 0, MapError(err)
	}

	_, err = r.audit.AppendTx(ctx, tx, model.EventQuestionEdited, &authorID, "question", id,
		map[string]any{"version": version, "textLen": len(text), "deferredClustering": deferred},
		model.SeverityInfo)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, MapError(err)
	}
	return q, version, nil
}

// GetByID returns a single question.
func (r *QuestionRepo) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	var q model.Question
	err := r.pool.QueryRow(ctx, `
		SELECT `+questionColumns+` FROM questions WHERE id = $1`, id,
	).Scan(questionFields(&q)...)
	if err != nil {
		return nil, MapError(err)
	}
	return &q, nil
}

// ListRanked returns one page of a contest's votable questions ordered by
// rank_score desc, id asc. The id tie-break guarantees a total order for
// pagination.
func (r *QuestionRepo) ListRanked(ctx context.Context, contestID int64, page, pageSize int) (*model.RankedPage, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}
	if page < 1 {
		page = 1
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM questions
		WHERE contest_id = $1 AND status = 'approved'`, contestID).Scan(&total)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE contest_id = $1 AND status = 'approved'
		ORDER BY rank_score DESC, id ASC
		LIMIT $2 OFFSET $3`,
		contestID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(questionFields(&q)...); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &model.RankedPage{
		ContestID: contestID,
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		Questions: questions,
	}, nil
}

// UpdateRank persists a recomputed rank score. Only the rank scorer calls this.
func (r *QuestionRepo) UpdateRank(ctx context.Context, id int64, score float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE questions SET rank_score = $2, updated_at = NOW() WHERE id = $1`,
		id, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateEmbedding stores a freshly fetched embedding for a question whose
// clustering was deferred.
func (r *QuestionRepo) UpdateEmbedding(ctx context.Context, id int64, embedding []float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE questions SET embedding = $2, updated_at = NOW() WHERE id = $1`,
		id, embedding)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListPendingClustering returns questions whose embedding lookup was deferred
// and still await cluster assignment.
func (r *QuestionRepo) ListPendingClustering(ctx context.Context, limit int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE pending_clustering = true AND status IN ('pending', 'approved')
		ORDER BY id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(questionFields(&q)...); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListActive returns approved questions for the periodic decay sweep,
// oldest page first.
func (r *QuestionRepo) ListActive(ctx context.Context, limit int, afterID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE status = 'approved' AND id > $2
		ORDER BY id ASC
		LIMIT $1`, limit, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(questionFields(&q)...); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// OpenReportCount returns the number of currently flagged questions authored
// by the given user. Input to the auto-approval policy check.
func (r *QuestionRepo) OpenReportCount(ctx context.Context, authorID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(is_flagged), 0) FROM questions WHERE author_id = $1`,
		authorID).Scan(&n)
	return n, err
}

// lockQuestion takes the per-question row lock that serializes all mutations
// of one question against each other. NOWAIT turns lock contention into
// ErrConflictRetry instead of queueing callers.
func lockQuestion(ctx context.Context, tx pgx.Tx, id int64) (*model.Question, error) {
	var q model.Question
	err := tx.QueryRow(ctx, `
		SELECT `+questionColumns+`
		FROM questions WHERE id = $1
		FOR UPDATE NOWAIT`, id,
	).Scan(questionFields(&q)...)
	if err != nil {
		return nil, MapError(err)
	}
	return &q, nil
}

// questionFields returns scan destinations in questionColumns order.
func questionFields(q *model.Question) []any {
	return []any{
		&q.ID, &q.ContestID, &q.AuthorID, &q.Text, &q.Embedding, &q.ClusterID, &q.Status,
		&q.Upvotes, &q.Downvotes, &q.WeightedUpvotes, &q.WeightedDownvotes,
		&q.RankScore, &q.IsFlagged, &q.ModerationNotes, &q.PendingClustering,
		&q.CreatedAt, &q.UpdatedAt,
	}
}
