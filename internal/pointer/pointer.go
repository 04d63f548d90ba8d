// Package pointer implements typed, hash-bound references from one record to
// another and their resolution against the places records live: a remote
// query capability, a local record index, or the transaction being validated.
//
// A Static pointer binds to one immutable version of a record. A Linear
// pointer binds to a stable identity and resolves to whichever version is
// currently unconsumed. Both carry a hash computed once at construction from
// (strategy, target ref, target type, target identity); the hash is the
// integrity anchor that lets validators detect a pointer being swapped across
// amendments.
package pointer

import (
	"encoding/json"
	"fmt"

	"claimledger/internal/ledger"
	"claimledger/internal/ledger/hashing"
	"claimledger/internal/violation"
	"claimledger/pkg/domain"
	dErrors "claimledger/pkg/domain-errors"
)

// Strategy selects how a pointer identifies its target.
type Strategy int

const (
	// Static matches candidate.Ref == target ref.
	Static Strategy = iota + 1
	// Linear matches candidate linear ID == target identity, unconsumed only.
	Linear
)

func (s Strategy) String() string {
	switch s {
	case Static:
		return "static"
	case Linear:
		return "linear"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if s != Static && s != Linear {
		return nil, fmt.Errorf("invalid pointer strategy %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "static":
		*s = Static
	case "linear":
		*s = Linear
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid pointer strategy: "+string(text))
	}
	return nil
}

// Pointer is a typed reference to exactly one record. The zero value is not usable.
type Pointer struct {
	strategy       Strategy
	targetRef      ledger.StateRef
	targetType     ledger.StateType
	targetIdentity domain.UniqueIdentifier
	hasIdentity    bool
	hash           hashing.Hash
}

// NewStatic binds to the exact version in target. When the target is a
// linear record its identity is recorded too, for ImmutableEquals.
func NewStatic(target ledger.AnyStateAndRef) Pointer {
	p := Pointer{
		strategy:   Static,
		targetRef:  target.Ref,
		targetType: target.State.StateType(),
	}
	if id, ok := ledger.LinearIDOf(target.State); ok {
		p.targetIdentity, p.hasIdentity = id, true
	}
	p.hash = p.computeHash()
	return p
}

// NewLinear binds to the identity of target, starting from its current version.
func NewLinear(target ledger.AnyStateAndRef) (Pointer, error) {
	id, ok := ledger.LinearIDOf(target.State)
	if !ok {
		return Pointer{}, violation.Newf(violation.PointerNotLinear, "type %s", target.State.StateType())
	}
	p := Pointer{
		strategy:       Linear,
		targetRef:      target.Ref,
		targetType:     target.State.StateType(),
		targetIdentity: id,
		hasIdentity:    true,
	}
	p.hash = p.computeHash()
	return p, nil
}

// NewLinearTo binds to an identity without knowing any version of it yet.
func NewLinearTo(identity domain.UniqueIdentifier, stateType ledger.StateType) Pointer {
	p := Pointer{
		strategy:       Linear,
		targetType:     stateType,
		targetIdentity: identity,
		hasIdentity:    true,
	}
	p.hash = p.computeHash()
	return p
}

func (p Pointer) computeHash() hashing.Hash {
	var identity any
	if p.hasIdentity {
		identity = p.targetIdentity.String()
	}
	return hashing.Of(hashing.Fields{
		"strategy":        p.strategy,
		"target_ref":      p.targetRef,
		"target_type":     p.targetType,
		"target_identity": identity,
	})
}

func (p Pointer) Strategy() Strategy {
	return p.strategy
}

func (p Pointer) TargetRef() ledger.StateRef {
	return p.targetRef
}

func (p Pointer) TargetType() ledger.StateType {
	return p.targetType
}

// TargetIdentity returns the bound identity, if any.
func (p Pointer) TargetIdentity() (domain.UniqueIdentifier, bool) {
	return p.targetIdentity, p.hasIdentity
}

// Hash is the integrity anchor fixed at construction.
func (p Pointer) Hash() hashing.Hash {
	return p.hash
}

// IsZero reports whether p was never constructed.
func (p Pointer) IsZero() bool {
	return p.strategy == 0
}

// Rebind advances a linear pointer to a newer version of the same identity.
// The hash is carried over unchanged.
func (p Pointer) Rebind(target ledger.AnyStateAndRef) (Pointer, error) {
	if p.strategy != Linear {
		return Pointer{}, violation.New(violation.PointerStaticRebind)
	}
	id, ok := ledger.LinearIDOf(target.State)
	if !ok || id != p.targetIdentity || target.State.StateType() != p.targetType {
		return Pointer{}, violation.New(violation.PointerIdentityChanged)
	}
	next := p
	next.targetRef = target.Ref
	return next, nil
}

// IsPointingTo checks identity without fetching anything.
func (p Pointer) IsPointingTo(candidate ledger.AnyStateAndRef) bool {
	switch p.strategy {
	case Static:
		return candidate.Ref == p.targetRef
	case Linear:
		if candidate.State == nil {
			return false
		}
		id, ok := ledger.LinearIDOf(candidate.State)
		return ok && id == p.targetIdentity
	default:
		return false
	}
}

// ImmutableEquals compares the parts of a pointer that may never change
// across an amendment chain: strategy, target type and target identity.
func (p Pointer) ImmutableEquals(other Pointer) bool {
	return p.strategy == other.strategy &&
		p.targetType == other.targetType &&
		p.hasIdentity == other.hasIdentity &&
		p.targetIdentity == other.targetIdentity
}

// Criteria is what the pointer resolves with.
func (p Pointer) Criteria() Criteria {
	if p.strategy == Linear {
		id := p.targetIdentity
		return Criteria{LinearID: &id, UnconsumedOnly: true}
	}
	ref := p.targetRef
	return Criteria{Ref: &ref}
}

func (p Pointer) String() string {
	if p.strategy == Linear {
		return fmt.Sprintf("linear:%s/%s", p.targetType, p.targetIdentity)
	}
	return fmt.Sprintf("static:%s/%s", p.targetType, p.targetRef)
}

type pointerJSON struct {
	Strategy       Strategy                 `json:"strategy"`
	TargetRef      *ledger.StateRef         `json:"target_ref,omitempty"`
	TargetType     ledger.StateType         `json:"target_type"`
	TargetIdentity *domain.UniqueIdentifier `json:"target_identity,omitempty"`
	Hash           hashing.Hash             `json:"hash"`
}

// MarshalJSON implements json.Marshaler.
func (p Pointer) MarshalJSON() ([]byte, error) {
	out := pointerJSON{
		Strategy:   p.strategy,
		TargetType: p.targetType,
		Hash:       p.hash,
	}
	if !p.targetRef.IsZero() {
		ref := p.targetRef
		out.TargetRef = &ref
	}
	if p.hasIdentity {
		id := p.targetIdentity
		out.TargetIdentity = &id
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. The stored hash is kept as is;
// decoding never re-anchors a pointer. A static pointer never moves, so its
// hash must still match the decoded target.
func (p *Pointer) UnmarshalJSON(data []byte) error {
	var in pointerJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.TargetType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "pointer target type is required")
	}
	if in.Hash.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "pointer hash is required")
	}
	out := Pointer{strategy: in.Strategy, targetType: in.TargetType, hash: in.Hash}
	if in.TargetRef != nil {
		out.targetRef = *in.TargetRef
	}
	if in.TargetIdentity != nil {
		out.targetIdentity, out.hasIdentity = *in.TargetIdentity, true
	}
	switch {
	case out.strategy != Static && out.strategy != Linear:
		return dErrors.New(dErrors.CodeInvalidInput, "pointer strategy is required")
	case out.strategy == Static && out.targetRef.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "static pointer requires a target ref")
	case out.strategy == Linear && !out.hasIdentity:
		return dErrors.New(dErrors.CodeInvalidInput, "linear pointer requires a target identity")
	case out.strategy == Static && out.computeHash() != out.hash:
		return dErrors.New(dErrors.CodeInvalidInput, "pointer hash does not match its target")
	}
	*p = out
	return nil
}
