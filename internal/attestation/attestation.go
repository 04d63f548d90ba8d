// Package attestation implements third-party endorsements of ledger records.
// An attestation points at the record it endorses and carries an acceptance
// status; the pointer, the attestor and the identity never change across the
// attestation's amendment chain.
package attestation

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"claimledger/internal/account"
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/hashing"
	"claimledger/internal/pointer"
	"claimledger/pkg/domain"
	dErrors "claimledger/pkg/domain-errors"
)

// StateType is the type token of attestations.
const StateType ledger.StateType = "attestation"

// Status is the attestor's verdict on the target record.
type Status string

const (
	Accepted Status = "ACCEPTED"
	Rejected Status = "REJECTED"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid attestation status: "+s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	return s == Accepted || s == Rejected
}

func (s Status) String() string {
	return string(s)
}

// Attestation endorses the record Pointer denotes.
type Attestation struct {
	Attestor  ledger.Party
	Attestees []ledger.Party
	Pointer   pointer.Pointer
	Status    Status
	Metadata  map[string]string
	ID        domain.UniqueIdentifier
	Previous  *ledger.StateRef
}

type options struct {
	linear    bool
	attestees []ledger.Party
	metadata  map[string]string
}

// Option configures New.
type Option func(*options)

// WithLinearPointer tracks the target's identity instead of the exact version.
// The target must be a linear record.
func WithLinearPointer() Option {
	return func(o *options) {
		o.linear = true
	}
}

// WithAttestees adds parties the attestation concerns.
func WithAttestees(parties ...ledger.Party) Option {
	return func(o *options) {
		o.attestees = append(o.attestees, parties...)
	}
}

// WithMetadata attaches free-form metadata. The map is copied.
func WithMetadata(metadata map[string]string) Option {
	return func(o *options) {
		o.metadata = maps.Clone(metadata)
	}
}

// New issues the first version of an attestation over target.
func New(attestor ledger.Party, target ledger.AnyStateAndRef, status Status, opts ...Option) (Attestation, error) {
	if attestor == nil {
		return Attestation{}, dErrors.New(dErrors.CodeInvalidInput, "attestor is required")
	}
	if target.State == nil {
		return Attestation{}, dErrors.New(dErrors.CodeInvalidInput, "attestation target is required")
	}
	if !status.IsValid() {
		return Attestation{}, dErrors.New(dErrors.CodeInvalidInput, "invalid attestation status: "+string(status))
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	p := pointer.NewStatic(target)
	if o.linear {
		var err error
		if p, err = pointer.NewLinear(target); err != nil {
			return Attestation{}, err
		}
	}

	a := Attestation{
		Attestor: attestor,
		Pointer:  p,
		Status:   status,
		Metadata: o.metadata,
		ID:       domain.NewUniqueIdentifier(""),
	}
	if len(o.attestees) > 0 {
		a.Attestees = ledger.DistinctParties(o.attestees...)
	}
	return a, nil
}

func (a Attestation) StateType() ledger.StateType {
	return StateType
}

// Participants are the attestor and the attestees, once each.
func (a Attestation) Participants() []ledger.Party {
	return ledger.DistinctParties(append([]ledger.Party{a.Attestor}, a.Attestees...)...)
}

func (a Attestation) LinearID() domain.UniqueIdentifier {
	return a.ID
}

func (a Attestation) PreviousStateRef() *ledger.StateRef {
	return a.Previous
}

// Amend returns the next version with a new verdict, linked to prev.
// A nil metadata map keeps the current metadata.
func (a Attestation) Amend(prev ledger.StateRef, status Status, metadata map[string]string) Attestation {
	next := a
	next.Status = status
	if metadata != nil {
		next.Metadata = maps.Clone(metadata)
	}
	next.Attestees = slices.Clone(a.Attestees)
	next.Previous = &prev
	return next
}

// Resolve fetches the attested record. A nil resolver uses the defaults.
func (a Attestation) Resolve(ctx context.Context, r *pointer.Resolver, src pointer.Source) (pointer.Resolution, error) {
	if r == nil {
		return a.Pointer.Resolve(ctx, src)
	}
	return r.Resolve(ctx, a.Pointer, src)
}

// Hash covers every field of this version. Attestee order does not matter:
// attestees enter as the sorted digests of their hash fields.
func (a Attestation) Hash() hashing.Hash {
	attestees := make([]string, 0, len(a.Attestees))
	for _, p := range a.Attestees {
		attestees = append(attestees, hashing.Of(ledger.PartyHashFields(p)).String())
	}
	slices.Sort(attestees)

	return hashing.Of(hashing.Fields{
		"attestor":  ledger.PartyHashFields(a.Attestor),
		"attestees": attestees,
		"pointer":   a.Pointer.Hash().String(),
		"status":    a.Status,
		"metadata":  a.Metadata,
		"id":        a.ID.String(),
		"previous":  a.Previous,
	})
}

type attestationJSON struct {
	Attestor  json.RawMessage         `json:"attestor"`
	Attestees []json.RawMessage       `json:"attestees,omitempty"`
	Pointer   pointer.Pointer         `json:"pointer"`
	Status    Status                  `json:"status"`
	Metadata  map[string]string       `json:"metadata,omitempty"`
	ID        domain.UniqueIdentifier `json:"id"`
	Previous  *ledger.StateRef        `json:"previous,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Attestation) MarshalJSON() ([]byte, error) {
	attestor, err := account.EncodeParty(a.Attestor)
	if err != nil {
		return nil, err
	}
	out := attestationJSON{
		Attestor: attestor,
		Pointer:  a.Pointer,
		Status:   a.Status,
		Metadata: a.Metadata,
		ID:       a.ID,
		Previous: a.Previous,
	}
	for _, p := range a.Attestees {
		enc, err := account.EncodeParty(p)
		if err != nil {
			return nil, err
		}
		out.Attestees = append(out.Attestees, enc)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. The pointer hash is kept exactly
// as stored.
func (a *Attestation) UnmarshalJSON(data []byte) error {
	var in attestationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid attestation encoding")
	}
	attestor, err := account.DecodeParty(in.Attestor)
	if err != nil {
		return err
	}
	if attestor == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "attestor is required")
	}
	if in.Pointer.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "attestation pointer is required")
	}
	if !in.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid attestation status: "+string(in.Status))
	}
	if in.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "attestation id is required")
	}
	var attestees []ledger.Party
	for _, raw := range in.Attestees {
		p, err := account.DecodeParty(raw)
		if err != nil {
			return err
		}
		if p != nil {
			attestees = append(attestees, p)
		}
	}
	*a = Attestation{
		Attestor:  attestor,
		Attestees: attestees,
		Pointer:   in.Pointer,
		Status:    in.Status,
		Metadata:  in.Metadata,
		ID:        in.ID,
		Previous:  in.Previous,
	}
	return nil
}
