package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
)

// transitions is the complete moderation state graph. Anything not listed is
// rejected with ErrInvalidTransition. removed is terminal; merged questions
// are never reactivated.
var transitions = map[model.QuestionStatus][]model.QuestionStatus{
	model.StatusPending:  {model.StatusApproved, model.StatusRemoved},
	model.StatusApproved: {model.StatusMerged, model.StatusRemoved},
	model.StatusMerged:   {},
	model.StatusRemoved:  {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to model.QuestionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the states reachable from the given state.
func AllowedTransitions(from model.QuestionStatus) []model.QuestionStatus {
	return transitions[from]
}

// targetStatus maps a moderation action to the state it drives toward.
func targetStatus(kind model.ModerationActionKind) model.QuestionStatus {
	switch kind {
	case model.ActionApprove:
		return model.StatusApproved
	case model.ActionMerge:
		return model.StatusMerged
	default: // reject, remove
		return model.StatusRemoved
	}
}

// ModerationService executes moderator actions and the automatic lifecycle
// rules against the question state machine.
type ModerationService struct {
	pool     *pgxpool.Pool
	votes    *repository.VoteRepo
	clusters *repository.ClusterRepo
	audit    *repository.AuditRepo
}

func NewModerationService(pool *pgxpool.Pool, votes *repository.VoteRepo, clusters *repository.ClusterRepo, audit *repository.AuditRepo) *ModerationService {
	return &ModerationService{pool: pool, votes: votes, clusters: clusters, audit: audit}
}

// Moderate applies one moderator action. Replaying an action whose target is
// already in the resulting state is a success no-op that records one
// info-level redundant-action entry, so retried requests after a network
// failure are safe and still visible in the log.
func (s *ModerationService) Moderate(ctx context.Context, questionID int64, action model.ModerationAction) (*model.ModerationResult, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	q, err := lockQuestionTx(ctx, tx, questionID)
	if err != nil {
		return nil, err
	}

	to := targetStatus(action.Kind)

	if q.Status == to {
		_, err = s.audit.AppendTx(ctx, tx, model.EventModerationRedundant, &action.ActorID,
			"question", questionID,
			map[string]any{"action": action.Kind, "status": q.Status},
			model.SeverityInfo)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return &model.ModerationResult{QuestionID: questionID, Status: q.Status, Redundant: true}, nil
	}

	if !CanTransition(q.Status, to) {
		return nil, model.NewTransitionError(q.Status, to, AllowedTransitions(q.Status))
	}

	var mergedInto int64
	switch action.Kind {
	case model.ActionMerge:
		if err := s.mergeTx(ctx, tx, q, action.TargetID, &action.ActorID, action.Reason); err != nil {
			return nil, err
		}
	case model.ActionApprove:
		// Approving a clustered question while another member is already
		// approved would leave two approved duplicates live. Fold into the
		// approved member instead, same as the automatic clustering path.
		survivorID, merge, err := resolveApprove(ctx, tx, s.clusters, q)
		if err != nil {
			return nil, err
		}
		if merge {
			if err := s.mergeTx(ctx, tx, q, survivorID, &action.ActorID, action.Reason); err != nil {
				return nil, err
			}
			to = model.StatusMerged
			mergedInto = survivorID
		} else if err := s.transitionTx(ctx, tx, q, to, &action.ActorID, string(action.Kind), action.Reason); err != nil {
			return nil, err
		}
	default:
		if err := s.transitionTx(ctx, tx, q, to, &action.ActorID, string(action.Kind), action.Reason); err != nil {
			return nil, err
		}
	}

	// Moderation status changes trigger a rank recompute.
	if _, err := tx.Exec(ctx, `SELECT pg_notify('rank_changes', $1::text)`, questionID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &model.ModerationResult{QuestionID: questionID, Status: to, MergedInto: mergedInto}, nil
}

// resolveApprove checks the question's cluster for an already-approved member
// and reports whether the approval must become a merge into it.
func resolveApprove(ctx context.Context, tx pgx.Tx, clusters *repository.ClusterRepo, q *model.Question) (survivorID int64, merge bool, err error) {
	if q.ClusterID == nil {
		return 0, false, nil
	}
	memberID, err := clusters.ApprovedMemberTx(ctx, tx, *q.ClusterID)
	return approveOutcome(q.ID, memberID, err)
}

// approveOutcome is the pure decision behind resolveApprove: no approved
// member means a plain approval, an approved member other than the question
// itself forces a merge.
func approveOutcome(questionID, approvedMemberID int64, lookupErr error) (survivorID int64, merge bool, err error) {
	switch {
	case errors.Is(lookupErr, model.ErrNotFound):
		return 0, false, nil
	case lookupErr != nil:
		return 0, false, lookupErr
	case approvedMemberID == questionID:
		return 0, false, nil
	default:
		return approvedMemberID, true, nil
	}
}

// AutoApprove runs the automatic pending -> approved transition for a freshly
// clustered question that passed the policy checks. System actor, info entry.
func (s *ModerationService) AutoApprove(ctx context.Context, questionID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q, err := lockQuestionTx(ctx, tx, questionID)
	if err != nil {
		return err
	}
	if q.Status == model.StatusApproved {
		return tx.Commit(ctx) // already approved, nothing to do
	}
	if !CanTransition(q.Status, model.StatusApproved) {
		return model.NewTransitionError(q.Status, model.StatusApproved, AllowedTransitions(q.Status))
	}

	if err := s.transitionTx(ctx, tx, q, model.StatusApproved, nil, "auto_approve", ""); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify('rank_changes', $1::text)`, questionID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CheckAutoApproval is the pure policy gate for the automatic
// pending -> approved path: non-empty text within limits, no blocklist hit,
// author below the open-report threshold.
func CheckAutoApproval(text string, authorOpenReports int, policy config.ModerationPolicy) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, "empty text"
	}
	if policy.MaxTextLen > 0 && len(trimmed) > policy.MaxTextLen {
		return false, "text too long"
	}

	lower := strings.ToLower(trimmed)
	for _, blocked := range policy.Blocklist {
		if strings.Contains(lower, blocked) {
			return false, "blocklist match"
		}
	}

	if policy.AuthorReportThreshold > 0 && authorOpenReports >= policy.AuthorReportThreshold {
		return false, "author over report threshold"
	}
	return true, ""
}

// transitionTx performs a plain status change with its audit entry.
func (s *ModerationService) transitionTx(ctx context.Context, tx pgx.Tx, q *model.Question, to model.QuestionStatus, actorID *string, action, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE questions SET status = $2, updated_at = NOW() WHERE id = $1`,
		q.ID, to)
	if err != nil {
		return err
	}

	severity := model.SeverityInfo
	if to == model.StatusRemoved {
		severity = model.SeverityWarning
	}

	_, err = s.audit.AppendTx(ctx, tx, moderationEventType(to), actorID, "question", q.ID,
		map[string]any{"action": action, "from": q.Status, "to": to, "reason": reason},
		severity)
	return err
}

// mergeTx absorbs q into the survivor: the survivor must be an approved
// question in the same contest. Vote weight moves by summing weighted
// aggregates, never by recount. Both rows are locked NOWAIT, so crossing
// merges surface as ErrConflictRetry instead of deadlocking.
func (s *ModerationService) mergeTx(ctx context.Context, tx pgx.Tx, q *model.Question, survivorID int64, actorID *string, reason string) error {
	if survivorID == q.ID {
		return fmt.Errorf("%w: cannot merge a question into itself", model.ErrInvalidInput)
	}

	survivor, err := lockQuestionTx(ctx, tx, survivorID)
	if err != nil {
		return err
	}
	if survivor.ContestID != q.ContestID {
		return fmt.Errorf("%w: merge target is in another contest", model.ErrInvalidInput)
	}
	if survivor.Status != model.StatusApproved {
		return fmt.Errorf("%w: merge target is %s, must be approved", model.ErrInvalidState, survivor.Status)
	}

	if err := s.votes.RedistributeTx(ctx, tx, q.ID, survivorID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE questions SET status = 'merged', cluster_id = $2, updated_at = NOW()
		WHERE id = $1`,
		q.ID, survivor.ClusterID)
	if err != nil {
		return err
	}

	_, err = s.audit.AppendTx(ctx, tx, model.EventModerationMerged, actorID, "question", q.ID,
		map[string]any{"survivorId": survivorID, "reason": reason},
		model.SeverityInfo)
	if err != nil {
		return err
	}

	// Survivor aggregates changed; its rank needs recomputing too.
	_, err = tx.Exec(ctx, `SELECT pg_notify('rank_changes', $1::text)`, survivorID)
	return err
}

func moderationEventType(to model.QuestionStatus) string {
	switch to {
	case model.StatusApproved:
		return model.EventModerationApproved
	case model.StatusMerged:
		return model.EventModerationMerged
	default:
		return model.EventModerationRemoved
	}
}

// lockQuestionTx locks one question row inside an existing transaction, with
// the same NOWAIT-to-ErrConflictRetry contract the repositories use.
func lockQuestionTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Question, error) {
	var q model.Question
	err := tx.QueryRow(ctx, `
		SELECT id, contest_id, author_id, text, embedding, cluster_id, status,
		       upvotes, downvotes, weighted_upvotes, weighted_downvotes,
		       rank_score, is_flagged, moderation_notes, pending_clustering,
		       created_at, updated_at
		FROM questions WHERE id = $1
		FOR UPDATE NOWAIT`, id,
	).Scan(
		&q.ID, &q.ContestID, &q.AuthorID, &q.Text, &q.Embedding, &q.ClusterID, &q.Status,
		&q.Upvotes, &q.Downvotes, &q.WeightedUpvotes, &q.WeightedDownvotes,
		&q.RankScore, &q.IsFlagged, &q.ModerationNotes, &q.PendingClustering,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, repository.MapError(err)
	}
	return &q, nil
}
