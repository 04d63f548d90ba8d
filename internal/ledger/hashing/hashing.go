// Package hashing computes content hashes for ledger records.
//
// A record hash covers a named set of fields. Fields are serialised as
// canonical JSON (object keys sorted) before SHA-256 digestion, so the digest
// depends only on names and values, never on declaration or insertion order.
package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	dErrors "claimledger/pkg/domain-errors"
)

// Size is the digest length in bytes.
const Size = sha256.Size

// Hash is a SHA-256 digest.
type Hash [Size]byte

// Fields names the immutable content of a record.
type Fields map[string]any

// Of hashes fields. Values must be JSON encodable; values that are not fall
// back to their %#v rendering so hashing never fails.
func Of(fields Fields) Hash {
	return sha256.Sum256(canonical(fields))
}

// Bytes hashes raw bytes.
func Bytes(b []byte) Hash {
	return sha256.Sum256(b)
}

func canonical(fields Fields) []byte {
	normalised := make(map[string]json.RawMessage, len(fields))
	for name, v := range fields {
		normalised[name] = encodeValue(v)
	}
	// map[string]json.RawMessage marshals with sorted keys and cannot fail.
	out, _ := json.Marshal(normalised)
	return out
}

func encodeValue(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprintf("%#v", v))
	}
	// Re-encoding through a generic value sorts nested struct fields too.
	// UseNumber keeps large integers exact.
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var generic any
	if dec.Decode(&generic) == nil {
		if sorted, err := json.Marshal(generic); err == nil {
			return sorted
		}
	}
	return b
}

// String renders the digest as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Parse decodes a hex digest.
func Parse(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid hash encoding")
	}
	if len(b) != Size {
		return h, dErrors.New(dErrors.CodeInvalidInput, "invalid hash length")
	}
	copy(h[:], b)
	return h, nil
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
