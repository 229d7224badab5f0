package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/db"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/pkg/hash"
)

// GenesisHash anchors the chain: the prev_hash of the first entry.
var GenesisHash = hash.SHA256Hex("civicq-audit-genesis")

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// AppendTx writes one audit entry inside the caller's transaction, linking it
// to the current chain tail. The chain advisory lock serializes appends so
// prev_hash linkage never races. If the append fails, the caller's whole
// transaction must fail with it: no unaudited mutation is ever committed.
func (r *AuditRepo) AppendTx(ctx context.Context, tx pgx.Tx, eventType string, actorID *string, targetType string, targetID int64, eventData any, severity model.AuditSeverity) (*model.AuditLogEntry, error) {
	if err := db.AcquireTxLock(ctx, tx, db.AuditChainLockKey()); err != nil {
		return nil, fmt.Errorf("audit chain lock: %w", err)
	}

	payload, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("encode event data: %w", err)
	}

	var prevHash string
	err = tx.QueryRow(ctx, `
		SELECT this_hash FROM audit_log ORDER BY id DESC LIMIT 1`).Scan(&prevHash)
	if err == pgx.ErrNoRows {
		prevHash = GenesisHash
	} else if err != nil {
		return nil, err
	}

	// Truncated to microseconds so the hashed timestamp is exactly what
	// TIMESTAMPTZ stores; written explicitly rather than relying on the
	// column default for the same reason.
	entry := &model.AuditLogEntry{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		ActorID:    actorID,
		TargetType: targetType,
		TargetID:   targetID,
		EventData:  payload,
		Severity:   severity,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		PrevHash:   prevHash,
	}
	entry.ThisHash = hash.ChainHash(prevHash, entry.CanonicalPayload())

	err = tx.QueryRow(ctx, `
		INSERT INTO audit_log (event_id, event_type, actor_id, target_type, target_id,
		                       event_data, severity, created_at, prev_hash, this_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		entry.EventID, entry.EventType, entry.ActorID, entry.TargetType, entry.TargetID,
		string(entry.EventData), entry.Severity, entry.CreatedAt, entry.PrevHash, entry.ThisHash,
	).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}

	return entry, nil
}

// Range returns entries with id in [fromID, toID], oldest first. Used by
// chain verification.
func (r *AuditRepo) Range(ctx context.Context, fromID, toID int64) ([]model.AuditLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, event_type, actor_id, target_type, target_id,
		       event_data, severity, created_at, prev_hash, this_hash
		FROM audit_log
		WHERE id >= $1 AND id <= $2
		ORDER BY id ASC`, fromID, toID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditEntries(rows)
}

// PrevHashOf returns the this_hash of the entry immediately before id, or the
// genesis hash when id is the first entry.
func (r *AuditRepo) PrevHashOf(ctx context.Context, id int64) (string, error) {
	var h string
	err := r.pool.QueryRow(ctx, `
		SELECT this_hash FROM audit_log WHERE id < $1 ORDER BY id DESC LIMIT 1`, id).Scan(&h)
	if err == pgx.ErrNoRows {
		return GenesisHash, nil
	}
	return h, err
}

// MaxID returns the id of the chain tail, or 0 for an empty log.
func (r *AuditRepo) MaxID(ctx context.Context) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM audit_log`).Scan(&id)
	return id, err
}

// List returns a filtered, paginated view of the log, oldest first.
func (r *AuditRepo) List(ctx context.Context, f model.AuditLogFilter) (*model.AuditLogPage, error) {
	var conds []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.EventType != "" {
		add("event_type = $%d", f.EventType)
	}
	if f.TargetType != "" {
		add("target_type = $%d", f.TargetType)
	}
	if f.TargetID != 0 {
		add("target_id = $%d", f.TargetID)
	}
	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log `+where, args...).Scan(&total)
	if err != nil {
		return nil, err
	}

	limit := f.PageSize
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, event_id, event_type, actor_id, target_type, target_id,
		       event_data, severity, created_at, prev_hash, this_hash
		FROM audit_log %s
		ORDER BY id ASC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanAuditEntries(rows)
	if err != nil {
		return nil, err
	}

	return &model.AuditLogPage{Page: page, Total: total, Entries: entries}, nil
}

func scanAuditEntries(rows pgx.Rows) ([]model.AuditLogEntry, error) {
	var entries []model.AuditLogEntry
	for rows.Next() {
		var e model.AuditLogEntry
		var data string
		err := rows.Scan(
			&e.ID, &e.EventID, &e.EventType, &e.ActorID, &e.TargetType, &e.TargetID,
			&data, &e.Severity, &e.CreatedAt, &e.PrevHash, &e.ThisHash,
		)
		if err != nil {
			return nil, err
		}
		e.EventData = json.RawMessage(data)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
