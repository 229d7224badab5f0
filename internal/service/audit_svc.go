package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/repository"
	"github.com/calebnewtonusc/CivicQ-sub006/pkg/hash"
)

// AuditService exposes read-only views over the hash-chained audit log and
// chain verification. Appends happen inside the mutating repositories; this
// service never writes.
type AuditService struct {
	repo *repository.AuditRepo
}

func NewAuditService(repo *repository.AuditRepo) *AuditService {
	return &AuditService{repo: repo}
}

// List returns a filtered, paginated, read-only view of the log.
func (s *AuditService) List(ctx context.Context, filter model.AuditLogFilter) (*model.AuditLogPage, error) {
	return s.repo.List(ctx, filter)
}

// batchSize bounds how many entries VerifyChain and Export hold in memory
// at once, regardless of log size.
const batchSize = 1000

// VerifyChain recomputes hashes across [fromID, toID] and fails closed at the
// first link that does not match, signaling tampering. A zero toID means
// "through the current tail". Entries are read in fixed-size batches with the
// running hash carried across batch boundaries.
func (s *AuditService) VerifyChain(ctx context.Context, fromID, toID int64) (*model.ChainVerification, error) {
	if fromID < 1 {
		fromID = 1
	}
	if toID == 0 {
		tail, err := s.repo.MaxID(ctx)
		if err != nil {
			return nil, err
		}
		toID = tail
	}

	result := &model.ChainVerification{OK: true, FromID: fromID, ToID: toID}
	if toID < fromID {
		return result, nil // empty range, trivially valid
	}

	prevHash, err := s.repo.PrevHashOf(ctx, fromID)
	if err != nil {
		return nil, err
	}

	for batchFrom := fromID; batchFrom <= toID; batchFrom += batchSize {
		batchTo := batchFrom + batchSize - 1
		if batchTo > toID {
			batchTo = toID
		}
		entries, err := s.repo.Range(ctx, batchFrom, batchTo)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			continue
		}

		verified, broken, detail := VerifyEntries(entries, prevHash)
		result.Checked += verified
		if broken != 0 {
			result.OK = false
			result.BrokenAt = broken
			result.Detail = detail
			return result, nil
		}
		prevHash = entries[len(entries)-1].ThisHash
	}
	return result, nil
}

// Export streams every audit entry to w as NDJSON, oldest first, in fixed-size
// batches so memory stays bounded regardless of log size.
func (s *AuditService) Export(ctx context.Context, w io.Writer) (int, error) {
	tail, err := s.repo.MaxID(ctx)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	exported := 0
	for fromID := int64(1); fromID <= tail; fromID += batchSize {
		toID := fromID + batchSize - 1
		if toID > tail {
			toID = tail
		}
		entries, err := s.repo.Range(ctx, fromID, toID)
		if err != nil {
			return exported, err
		}
		for i := range entries {
			if err := enc.Encode(&entries[i]); err != nil {
				return exported, err
			}
			exported++
		}
	}
	return exported, nil
}

// VerifyEntries walks a contiguous slice of entries, recomputing each link
// from the given starting prev hash. Returns the number of entries verified
// and, when a link fails, the id of the first broken entry. Pure.
func VerifyEntries(entries []model.AuditLogEntry, prevHash string) (verified int, brokenAt int64, detail string) {
	for i := range entries {
		e := &entries[i]

		if e.PrevHash != prevHash {
			return verified, e.ID, fmt.Sprintf("prev_hash mismatch at entry %d", e.ID)
		}

		expected := hash.ChainHash(e.PrevHash, e.CanonicalPayload())
		if e.ThisHash != expected {
			return verified, e.ID, fmt.Sprintf("this_hash mismatch at entry %d", e.ID)
		}

		prevHash = e.ThisHash
		verified++
	}
	return verified, 0, ""
}
