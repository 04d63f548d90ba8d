package ledger

import (
	"slices"
	"sort"

	"claimledger/internal/ledger/hashing"
)

// Key is an opaque public key fingerprint. Signature verification happens
// outside this module; here a key only ever takes part in set membership.
type Key string

// KeySet is the set of keys that signed a proposal.
type KeySet map[Key]struct{}

// NewKeySet builds a set from keys, ignoring empty ones.
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		if k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

// Contains reports whether key signed.
func (s KeySet) Contains(key Key) bool {
	if key == "" {
		return false
	}
	_, ok := s[key]
	return ok
}

// Keys returns the keys in sorted order.
func (s KeySet) Keys() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Party is anyone that can issue, hold or attest a record. Implementations
// must be comparable so that == is party equality.
type Party interface {
	// OwningKey is the key whose signature authorises the party.
	OwningKey() Key
	// HashFields is the structured form hashed into records naming the party.
	HashFields() hashing.Fields
	String() string
}

// LegalIdentity is a party acting under its own name.
type LegalIdentity struct {
	Name string `json:"name"`
	Key  Key    `json:"key"`
}

func (p LegalIdentity) OwningKey() Key {
	return p.Key
}

func (p LegalIdentity) HashFields() hashing.Fields {
	return hashing.Fields{"kind": "legal", "name": p.Name, "key": p.Key}
}

func (p LegalIdentity) String() string {
	return "legal:" + p.Name + "#" + string(p.Key)
}

// IsZero reports whether the identity is unset.
func (p LegalIdentity) IsZero() bool {
	return p == LegalIdentity{}
}

// ContainsParty reports whether p is among parties. A nil party is never contained.
func ContainsParty(parties []Party, p Party) bool {
	if p == nil {
		return false
	}
	return slices.Contains(parties, p)
}

// DistinctParties drops nil and repeated parties, keeping first occurrence order.
func DistinctParties(parties ...Party) []Party {
	out := make([]Party, 0, len(parties))
	for _, p := range parties {
		if p == nil || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PartyHashFields is p.HashFields, or nil for a nil party.
func PartyHashFields(p Party) hashing.Fields {
	if p == nil {
		return nil
	}
	return p.HashFields()
}

// SameParty compares two possibly nil parties.
func SameParty(a, b Party) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
