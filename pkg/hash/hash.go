package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// ChainHash computes the next link of an audit hash chain:
// SHA256(prevHash || payload), hex-encoded. The payload must be the
// canonical encoding of the entry so the chain is reproducible on verify.
func ChainHash(prevHash, payload string) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP hashes an IP address with a salt using 5000 iterations of SHA256.
// Used for rate-limit keys and log correlation without storing raw PII.
func HashIP(ip, salt string) string {
	return IteratedSHA256(salt+ip, 5000)
}
