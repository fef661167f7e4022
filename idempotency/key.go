package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	// MinKeyLength rejects trivially guessable keys ("checkout", "retry").
	MinKeyLength = 16
	// MaxKeyLength matches the storage column width.
	MaxKeyLength = 128
)

// ValidateKey checks the client-supplied Idempotency-Key before the
// coordinator engages. Length bounds only, counted in characters (the
// storage column is varchar, which also counts characters); the key is
// otherwise opaque.
func ValidateKey(rawKey string) error {
	n := utf8.RuneCountInString(rawKey)
	if n < MinKeyLength {
		return fmt.Errorf("Idempotency-Key must be at least %d characters", MinKeyLength)
	}
	if n > MaxKeyLength {
		return fmt.Errorf("Idempotency-Key must be at most %d characters", MaxKeyLength)
	}
	return nil
}

// StorageKey namespaces the raw key by caller identity so two callers using
// the same key string never collide. When the scoped form may not fit the
// storage column (measured in bytes, deliberately conservative) it degrades
// to a sha256 of the scoped form. Unauthenticated callers share the raw-key
// namespace.
func StorageKey(callerID, rawKey string) string {
	if callerID == "" {
		return rawKey
	}
	scoped := callerID + "::" + rawKey
	if len(scoped) > MaxKeyLength {
		sum := sha256.Sum256([]byte(scoped))
		return hex.EncodeToString(sum[:])
	}
	return scoped
}

// Fingerprint hashes the canonical form of a JSON request body: decode and
// re-encode so map keys come out in a stable order regardless of how the
// client serialized them. Bodies that are empty or not valid JSON get an
// empty fingerprint rather than failing the request.
func Fingerprint(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	canon, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}
