package configcrypt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey holds the document content hash, excluded from its own input.
const hashKey = "__hash"

// IntegrityResult reports a verification outcome with a reason suitable
// for users.
type IntegrityResult struct {
	Valid  bool
	Reason string
}

// ContentHash hashes the document minus the hash field itself. JSON
// encoding keeps map keys sorted, so the digest is deterministic.
func ContentHash(doc map[string]any) (string, error) {
	trimmed := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == hashKey {
			continue
		}
		trimmed[k] = v
	}
	data, err := json.Marshal(trimmed)
	if err != nil {
		return "", fmt.Errorf("configcrypt: hash config: %w", err)
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// SealIntegrity stamps doc with its current content hash.
func SealIntegrity(doc map[string]any) error {
	h, err := ContentHash(doc)
	if err != nil {
		return err
	}
	doc[hashKey] = h
	return nil
}

// VerifyIntegrity recomputes the content hash and compares it with the
// stored one.
func VerifyIntegrity(doc map[string]any) IntegrityResult {
	stored, ok := doc[hashKey].(string)
	if !ok {
		return IntegrityResult{Reason: "no integrity hash present"}
	}
	h, err := ContentHash(doc)
	if err != nil {
		return IntegrityResult{Reason: "document cannot be hashed"}
	}
	if h != stored {
		return IntegrityResult{Reason: "content hash mismatch"}
	}
	return IntegrityResult{Valid: true}
}
