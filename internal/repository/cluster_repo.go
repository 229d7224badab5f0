package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

const clusterColumns = `
	id, contest_id, representative_question_id, centroid, member_count,
	created_at, updated_at`

// ClusterRepo persists clusters. Membership itself lives on
// questions.cluster_id; the cluster row carries the running centroid and the
// member count needed to maintain it incrementally.
type ClusterRepo struct {
	pool *pgxpool.Pool
}

func NewClusterRepo(pool *pgxpool.Pool) *ClusterRepo {
	return &ClusterRepo{pool: pool}
}

// ListByContestTx returns all clusters of one contest inside the clustering
// transaction. The caller holds the contest advisory lock, so this set is
// stable for the duration of the assignment.
func (r *ClusterRepo) ListByContestTx(ctx context.Context, tx pgx.Tx, contestID int64) ([]model.Cluster, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+clusterColumns+`
		FROM clusters
		WHERE contest_id = $1
		ORDER BY id ASC`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []model.Cluster
	for rows.Next() {
		var c model.Cluster
		if err := rows.Scan(clusterFields(&c)...); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// CreateTx inserts a new singleton cluster for the given question and points
// the question at it.
func (r *ClusterRepo) CreateTx(ctx context.Context, tx pgx.Tx, contestID, questionID int64, centroid []float64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO clusters (contest_id, representative_question_id, centroid, member_count)
		VALUES ($1, $2, $3, 1)
		RETURNING id`,
		contestID, questionID, centroid).Scan(&id)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE questions SET cluster_id = $2, pending_clustering = false, updated_at = NOW()
		WHERE id = $1`, questionID, id)
	return id, err
}

// AddMemberTx joins a question to an existing cluster and folds its embedding
// into the running-mean centroid.
func (r *ClusterRepo) AddMemberTx(ctx context.Context, tx pgx.Tx, clusterID, questionID int64, newCentroid []float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE clusters
		SET centroid = $2, member_count = member_count + 1, updated_at = NOW()
		WHERE id = $1`, clusterID, newCentroid)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE questions SET cluster_id = $2, pending_clustering = false, updated_at = NOW()
		WHERE id = $1`, questionID, clusterID)
	return err
}

// DetachMemberTx removes a question from its cluster after an edit moved its
// embedding out of membership range. The question is re-evaluated as if new.
func (r *ClusterRepo) DetachMemberTx(ctx context.Context, tx pgx.Tx, clusterID, questionID int64, newCentroid []float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE clusters
		SET centroid = $2, member_count = GREATEST(member_count - 1, 0), updated_at = NOW()
		WHERE id = $1`, clusterID, newCentroid)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE questions SET cluster_id = NULL, updated_at = NOW()
		WHERE id = $1`, questionID)
	return err
}

// GetByID returns one cluster.
func (r *ClusterRepo) GetByID(ctx context.Context, id int64) (*model.Cluster, error) {
	var c model.Cluster
	err := r.pool.QueryRow(ctx, `
		SELECT `+clusterColumns+` FROM clusters WHERE id = $1`, id,
	).Scan(clusterFields(&c)...)
	if err != nil {
		return nil, MapError(err)
	}
	return &c, nil
}

// MemberIDs returns the ids of the cluster's member questions.
func (r *ClusterRepo) MemberIDs(ctx context.Context, clusterID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM questions WHERE cluster_id = $1 ORDER BY id ASC`, clusterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RefreshRepresentative repoints the cluster at its highest-ranked non-merged
// member (rank desc, id asc tie-break). Called lazily from the rank worker,
// not on every membership change.
func (r *ClusterRepo) RefreshRepresentative(ctx context.Context, clusterID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE clusters c
		SET representative_question_id = (
			SELECT q.id FROM questions q
			WHERE q.cluster_id = c.id AND q.status IN ('approved', 'pending')
			ORDER BY q.rank_score DESC, q.id ASC
			LIMIT 1
		), updated_at = NOW()
		WHERE c.id = $1`, clusterID)
	return err
}

// ApprovedMemberTx returns the highest-ranked approved member of a cluster,
// or ErrNotFound when the cluster has no approved members.
func (r *ClusterRepo) ApprovedMemberTx(ctx context.Context, tx pgx.Tx, clusterID int64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT id FROM questions
		WHERE cluster_id = $1 AND status = 'approved'
		ORDER BY rank_score DESC, id ASC
		LIMIT 1`, clusterID).Scan(&id)
	if err != nil {
		return 0, MapError(err)
	}
	return id, nil
}

func clusterFields(c *model.Cluster) []any {
	return []any{
		&c.ID, &c.ContestID, &c.RepresentativeQuestionID, &c.Centroid, &c.MemberCount,
		&c.CreatedAt, &c.UpdatedAt,
	}
}
