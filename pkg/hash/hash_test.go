package hash

import (
	"testing"
)

func TestSHA256Hex(t *testing.T) {
	// Known SHA256 of "hello"
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	got := SHA256Hex("hello")
	if got != want {
		t.Errorf("SHA256Hex(\"hello\") = %s, want %s", got, want)
	}
}

func TestSHA256Hex_Empty(t *testing.T) {
	// SHA256 of empty string
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	got := SHA256Hex("")
	if got != want {
		t.Errorf("SHA256Hex(\"\") = %s, want %s", got, want)
	}
}

func TestChainHash_MatchesManualConcat(t *testing.T) {
	prev := SHA256Hex("genesis")
	payload := `{"event_type":"question.created","target_id":1}`

	got := ChainHash(prev, payload)
	want := SHA256Hex(prev + payload)

	if got != want {
		t.Errorf("ChainHash = %s, want %s", got, want)
	}
}

func TestChainHash_DiffersOnPayloadChange(t *testing.T) {
	prev := SHA256Hex("genesis")

	a := ChainHash(prev, "payload-a")
	b := ChainHash(prev, "payload-b")

	if a == b {
		t.Error("ChainHash produced identical hashes for different payloads")
	}
}

func TestChainHash_DiffersOnPrevChange(t *testing.T) {
	a := ChainHash(SHA256Hex("one"), "payload")
	b := ChainHash(SHA256Hex("two"), "payload")

	if a == b {
		t.Error("ChainHash produced identical hashes for different prev links")
	}
}

func TestIteratedSHA256_SingleIteration(t *testing.T) {
	// 1 iteration should equal a single SHA256
	want := SHA256Hex("input")
	got := IteratedSHA256("input", 1)
	if got != want {
		t.Errorf("IteratedSHA256(1) = %s, want %s", got, want)
	}
}

func TestIteratedSHA256_Deterministic(t *testing.T) {
	a := IteratedSHA256("input", 100)
	b := IteratedSHA256("input", 100)
	if a != b {
		t.Error("IteratedSHA256 is not deterministic")
	}
}

func TestHashIP_SaltChangesOutput(t *testing.T) {
	a := HashIP("203.0.113.7", "salt-a")
	b := HashIP("203.0.113.7", "salt-b")
	if a == b {
		t.Error("HashIP ignored salt")
	}
}
