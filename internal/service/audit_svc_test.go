package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/pkg/hash"
)

// makeChain builds a well-formed chain of n entries from the given genesis
// hash, mirroring how AppendTx links entries.
func makeChain(n int, genesis string) []model.AuditLogEntry {
	entries := make([]model.AuditLogEntry, n)
	prev := genesis
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range entries {
		e := &entries[i]
		e.ID = int64(i + 1)
		e.EventType = model.EventVoteCast
		e.TargetType = "question"
		e.TargetID = int64(100 + i)
		e.EventData = json.RawMessage(`{"outcome":"cast"}`)
		e.Severity = model.SeverityInfo
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		e.PrevHash = prev
		e.ThisHash = hash.ChainHash(e.PrevHash, e.CanonicalPayload())
		prev = e.ThisHash
	}
	return entries
}

func TestVerifyEntries_ValidChain(t *testing.T) {
	genesis := hash.SHA256Hex("test-genesis")
	entries := makeChain(10, genesis)

	verified, brokenAt, detail := VerifyEntries(entries, genesis)
	if brokenAt != 0 {
		t.Fatalf("valid chain reported broken at %d: %s", brokenAt, detail)
	}
	if verified != 10 {
		t.Errorf("verified = %d, want 10", verified)
	}
}

func TestVerifyEntries_SurvivesStorageRoundTrip(t *testing.T) {
	genesis := hash.SHA256Hex("test-genesis")

	// Build the chain from nanosecond-precision clock readings, the way the
	// repository sees them at append time.
	entries := make([]model.AuditLogEntry, 5)
	prev := genesis
	base := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	for i := range entries {
		e := &entries[i]
		e.ID = int64(i + 1)
		e.EventType = model.EventVoteCast
		e.TargetType = "question"
		e.TargetID = int64(100 + i)
		e.EventData = json.RawMessage(`{"outcome":"cast","weight":0.75}`)
		e.Severity = model.SeverityInfo
		e.CreatedAt = base.Add(time.Duration(i)*time.Second + 987*time.Nanosecond)
		e.PrevHash = prev
		e.ThisHash = hash.ChainHash(e.PrevHash, e.CanonicalPayload())
		prev = e.ThisHash
	}

	// TIMESTAMPTZ keeps microseconds; reading the entries back loses the
	// sub-microsecond part. Verification must still pass.
	for i := range entries {
		entries[i].CreatedAt = entries[i].CreatedAt.Truncate(time.Microsecond)
	}

	verified, brokenAt, detail := VerifyEntries(entries, genesis)
	if brokenAt != 0 {
		t.Fatalf("round-tripped chain reported broken at %d: %s", brokenAt, detail)
	}
	if verified != len(entries) {
		t.Errorf("verified = %d, want %d", verified, len(entries))
	}
}

func TestVerifyEntries_EmptyChain(t *testing.T) {
	verified, brokenAt, _ := VerifyEntries(nil, "whatever")
	if verified != 0 || brokenAt != 0 {
		t.Errorf("empty chain: verified=%d brokenAt=%d, want 0, 0", verified, brokenAt)
	}
}

func TestVerifyEntries_CarriesHashAcrossBatches(t *testing.T) {
	genesis := hash.SHA256Hex("test-genesis")
	entries := makeChain(10, genesis)

	// Verify in two slices the way VerifyChain batches reads, carrying the
	// tail hash of one batch into the next.
	first, second := entries[:6], entries[6:]

	verified, brokenAt, detail := VerifyEntries(first, genesis)
	if brokenAt != 0 {
		t.Fatalf("first batch broken at %d: %s", brokenAt, detail)
	}
	v2, brokenAt, detail := VerifyEntries(second, first[len(first)-1].ThisHash)
	if brokenAt != 0 {
		t.Fatalf("second batch broken at %d: %s", brokenAt, detail)
	}
	if verified+v2 != len(entries) {
		t.Errorf("verified = %d, want %d", verified+v2, len(entries))
	}
}

func TestVerifyEntries_DetectsEditedPayload(t *testing.T) {
	genesis := hash.SHA256Hex("test-genesis")
	entries := makeChain(10, genesis)

	// Tamper with a mid-chain payload; its stored hash no longer matches.
	entries[4].EventData = json.RawMessage(`{"outcome":"flipped"}`)

	verified, brokenAt, detail := VerifyEntries(entries, genesis)
	if brokenAt != entries[4].ID {
		t.Fatalf("brokenAt = %d (%s), want %d", brokenAt, detail, entries[4].ID)
	}
	if verified != 4 {
		t.Errorf("verified = %d, want 4 entries before the break", verified)
	}
}

func TestVerifyEntries_DetectsRelinkedEntry(t *testing.T) {
	genesis := hash.SHA256Hex("test-genesis")
	entries := makeChain(5, genesis)

	// Rewrite an entry wholesale, recomputing its own hash: the chain still
	// breaks because the next entry's prev_hash no longer matches.
	entries[2].EventData = json.RawMessage(`{"outcome":"retracted"}`)
	entries[2].ThisHash = hash.ChainHash(entries[2].PrevHash, entries[2].CanonicalPayload())

	_, brokenAt, _ := VerifyEntries(entries, genesis)
	if brokenAt != entries[3].ID {
		t.Errorf("brokenAt = %d, want %d (successor of rewritten entry)", brokenAt, entries[3].ID)
	}
}

func TestVerifyEntries_DetectsWrongGenesis(t *testing.T) {
	genesis := hash.SHA256Hex("test-genesis")
	entries := makeChain(3, genesis)

	_, brokenAt, _ := VerifyEntries(entries, hash.SHA256Hex("other-genesis"))
	if brokenAt != entries[0].ID {
		t.Errorf("brokenAt = %d, want first entry %d", brokenAt, entries[0].ID)
	}
}
