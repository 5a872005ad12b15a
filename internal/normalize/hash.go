package normalize

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash normalizes the text and returns the SHA-256 hex digest of
// the result. An input that normalizes to nothing (binary payloads, pure
// boilerplate) yields "" so callers can skip the comparison entirely
// rather than diff two hashes of emptiness.
func ContentHash(text string) string {
	normalized := NormalizeText(text)
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
