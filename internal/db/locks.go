package db

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
)

// Advisory lock namespaces. The high 32 bits of the lock key identify the
// serialization domain, the low 32 bits the entity.
const (
	lockNSContest    = int64(1) << 32
	lockNSAuditChain = int64(2) << 32
)

// ContestLockKey returns the advisory lock key serializing clustering within
// one contest. Clustering in different contests proceeds in parallel.
func ContestLockKey(contestID int64) int64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d", contestID)
	return lockNSContest | int64(h.Sum32())
}

// AuditChainLockKey returns the single advisory lock key serializing audit
// chain appends, so prev_hash linkage is race-free.
func AuditChainLockKey() int64 {
	return lockNSAuditChain | 1
}

// AcquireTxLock takes a transaction-scoped advisory lock. It blocks until the
// lock is granted or the context is cancelled; the lock releases on
// commit/rollback.
func AcquireTxLock(ctx context.Context, tx pgx.Tx, key int64) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key)
	return err
}
