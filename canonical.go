package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalJSON produces a deterministic JSON encoding of v: object keys
// sorted lexicographically, compact separators, no insignificant
// whitespace (spec §6's wire-canonicalization rules, reused identically
// by the Reference Snapshot Service, the Auditor's hash chain, and the
// Ledger Selector's canonical hash — "the same canonical JSON rules" per
// spec §4.6).
//
// encoding/json already sorts map keys at every nesting level but emits
// struct fields in declaration order, so this re-marshals through a
// canonical value walk first, turning structs into maps whose keys are
// then emitted sorted.
func CanonicalJSON(v any) ([]byte, error) {
	normalized, err := canonicalizeValue(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// canonicalizeValue round-trips v through JSON once to obtain a
// plain-Go-value tree (map[string]any / []any / primitives), which
// guarantees map key sorting on the second marshal regardless of the
// original static type's field order or embedded maps-of-maps.
func canonicalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("canonical: unmarshal: %w", err)
	}
	return sortedCopy(generic), nil
}

// sortedCopy rebuilds maps as a slice of sorted key/value pairs is not
// representable directly in encoding/json's output, but Go's
// encoding/json already emits map[string]any keys sorted on Marshal; this
// walk exists to make that guarantee explicit and to recurse into slices.
func sortedCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = sortedCopy(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sortedCopy(e)
		}
		return out
	default:
		return v
	}
}

// ContentHash computes the SHA-256 hex digest of v's canonical JSON form.
func ContentHash(v any) (string, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HashString returns the lowercase hex SHA-256 digest of a raw string.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the lowercase hex SHA-256 digest of raw bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// genesisHash is the prev_hash of the first row in any hash chain
// (spec §4.6: "zero-bytes for the genesis row").
var genesisHash = hex.EncodeToString(make([]byte, sha256.Size))
