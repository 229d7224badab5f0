package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// GetStats returns aggregate statistics from all tables.
func (r *StatsRepo) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM questions) AS total_questions,
			(SELECT COUNT(DISTINCT contest_id) FROM questions) AS total_contests,
			(SELECT COUNT(*) FROM votes) AS total_votes,
			(SELECT COUNT(*) FROM clusters) AS total_clusters,
			(SELECT COUNT(*) FROM audit_log) AS audit_entries,
			(SELECT COUNT(*) FROM questions WHERE is_flagged > 0) AS flagged,
			(SELECT COUNT(*) FROM questions WHERE pending_clustering) AS pending_clusterings`

	var stats model.StatsResponse
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalQuestions, &stats.TotalContests, &stats.TotalVotes,
		&stats.TotalClusters, &stats.AuditEntries, &stats.FlaggedQuestions,
		&stats.PendingClusterings,
	)
	if err != nil {
		return nil, MapError(err)
	}

	statusQuery := `
		SELECT status, COUNT(*) AS total
		FROM questions
		GROUP BY status
		ORDER BY total DESC`

	rows, err := r.pool.Query(ctx, statusQuery)
	if err != nil {
		return nil, MapError(err)
	}
	defer rows.Close()

	stats.QuestionsByStatus = make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.QuestionsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &stats, nil
}
