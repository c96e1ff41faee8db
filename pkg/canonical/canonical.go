// Package canonical produces deterministic byte representations of values so
// that content digests survive storage round-trips. Any value is reduced to
// its JSON data model (maps, slices, strings, float64, bool, nil) before
// marshaling; encoding/json emits map keys in sorted order at every nesting
// level, so a struct and its decoded map form yield identical bytes.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Bytes returns the canonical JSON encoding of v.
func Bytes(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}

	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("canonical decode: %w", err)
	}

	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("canonical remarshal: %w", err)
	}
	return out, nil
}

// Digest returns the lowercase hex SHA-256 of the canonical encoding of v.
func Digest(v interface{}) (string, error) {
	b, err := Bytes(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
