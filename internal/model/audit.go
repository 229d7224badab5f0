package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Audit severity levels.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityCritical AuditSeverity = "critical"
)

// Audit event types emitted by the engine. One entry per mutation.
const (
	EventQuestionCreated     = "question.created"
	EventQuestionEdited      = "question.edited"
	EventQuestionClustered   = "question.clustered"
	EventQuestionFlagged     = "question.flagged"
	EventQuestionDetached    = "question.detached"
	EventVoteCast            = "vote.cast"
	EventVoteFlipped         = "vote.flipped"
	EventVoteRetracted       = "vote.retracted"
	EventModerationApproved  = "moderation.approved"
	EventModerationMerged    = "moderation.merged"
	EventModerationRemoved   = "moderation.removed"
	EventModerationRejected  = "moderation.rejected"
	EventModerationRedundant = "moderation.redundant"
	EventRankRecomputed      = "rank.recomputed"
)

// AuditLogEntry is one link of the append-only, hash-chained audit log.
// Once written it is never updated or deleted.
type AuditLogEntry struct {
	ID         int64           `json:"id"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	ActorID    *string         `json:"actorId,omitempty"` // nil for system-triggered events
	TargetType string          `json:"targetType"`
	TargetID   int64           `json:"targetId"`
	EventData  json.RawMessage `json:"eventData"`
	Severity   AuditSeverity   `json:"severity"`
	CreatedAt  time.Time       `json:"createdAt"`
	PrevHash   string          `json:"prevHash"`
	ThisHash   string          `json:"thisHash"`
}

// CanonicalPayload returns the deterministic encoding that is hashed into the
// chain: (prev_hash, event_type, target_id, event_data, created_at) joined
// with a fixed separator. created_at is truncated to microseconds before
// rendering, matching TIMESTAMPTZ precision, so the payload is byte-stable
// across a database round-trip. event_data is hashed exactly as stored; the
// column is TEXT so the bytes survive unnormalized.
func (e *AuditLogEntry) CanonicalPayload() string {
	return fmt.Sprintf("%s|%s|%d|%s|%s",
		e.PrevHash,
		e.EventType,
		e.TargetID,
		string(e.EventData),
		e.CreatedAt.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano),
	)
}

// AuditLogFilter narrows GetAuditLog reads.
type AuditLogFilter struct {
	EventType  string
	TargetType string
	TargetID   int64
	Severity   AuditSeverity
	Page       int
	PageSize   int
}

// AuditLogPage is one page of audit entries, oldest first.
type AuditLogPage struct {
	Page    int             `json:"page"`
	Total   int             `json:"total"`
	Entries []AuditLogEntry `json:"entries"`
}

// ChainVerification is the result of VerifyChain.
type ChainVerification struct {
	OK        bool   `json:"ok"`
	Checked   int    `json:"checked"`
	BrokenAt  int64  `json:"brokenAt,omitempty"` // entry id of the first broken link
	Detail    string `json:"detail,omitempty"`
	FromID    int64  `json:"fromId"`
	ToID      int64  `json:"toId"`
}
