// Package claim implements property/value assertions issued by one party to
// another, versioned through an amendment chain.
package claim

import (
	"encoding/json"

	"claimledger/internal/account"
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/hashing"
	"claimledger/pkg/domain"
	dErrors "claimledger/pkg/domain-errors"
)

// StateType is the type token of every claim regardless of its value type.
const StateType ledger.StateType = "claim"

// Claim asserts that Property has Value, from Issuer to Holder. Issuer and
// Holder may be legal identities or account parties.
type Claim[T any] struct {
	Issuer   ledger.Party
	Holder   ledger.Party
	Property string
	Value    T
	ID       domain.UniqueIdentifier
	Previous *ledger.StateRef
}

// New issues the first version of a claim.
func New[T any](issuer, holder ledger.Party, property string, value T) Claim[T] {
	return Claim[T]{
		Issuer:   issuer,
		Holder:   holder,
		Property: property,
		Value:    value,
		ID:       domain.NewUniqueIdentifier(""),
	}
}

func (c Claim[T]) StateType() ledger.StateType {
	return StateType
}

// Participants are the issuer and the holder, once each.
func (c Claim[T]) Participants() []ledger.Party {
	return ledger.DistinctParties(c.Issuer, c.Holder)
}

func (c Claim[T]) LinearID() domain.UniqueIdentifier {
	return c.ID
}

func (c Claim[T]) PreviousStateRef() *ledger.StateRef {
	return c.Previous
}

// Amend returns the next version carrying value, linked to prev.
func (c Claim[T]) Amend(prev ledger.StateRef, value T) Claim[T] {
	next := c
	next.Value = value
	next.Previous = &prev
	return next
}

// Hash covers every field of this version.
func (c Claim[T]) Hash() hashing.Hash {
	return hashing.Of(hashing.Fields{
		"issuer":   ledger.PartyHashFields(c.Issuer),
		"holder":   ledger.PartyHashFields(c.Holder),
		"property": c.Property,
		"value":    c.Value,
		"id":       c.ID.String(),
		"previous": c.Previous,
	})
}

type claimJSON[T any] struct {
	Issuer   json.RawMessage         `json:"issuer"`
	Holder   json.RawMessage         `json:"holder"`
	Property string                  `json:"property"`
	Value    T                       `json:"value"`
	ID       domain.UniqueIdentifier `json:"id"`
	Previous *ledger.StateRef        `json:"previous,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Claim[T]) MarshalJSON() ([]byte, error) {
	issuer, err := account.EncodeParty(c.Issuer)
	if err != nil {
		return nil, err
	}
	holder, err := account.EncodeParty(c.Holder)
	if err != nil {
		return nil, err
	}
	return json.Marshal(claimJSON[T]{
		Issuer:   issuer,
		Holder:   holder,
		Property: c.Property,
		Value:    c.Value,
		ID:       c.ID,
		Previous: c.Previous,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Claim[T]) UnmarshalJSON(data []byte) error {
	var in claimJSON[T]
	if err := json.Unmarshal(data, &in); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid claim encoding")
	}
	issuer, err := account.DecodeParty(in.Issuer)
	if err != nil {
		return err
	}
	holder, err := account.DecodeParty(in.Holder)
	if err != nil {
		return err
	}
	if in.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "claim id is required")
	}
	*c = Claim[T]{
		Issuer:   issuer,
		Holder:   holder,
		Property: in.Property,
		Value:    in.Value,
		ID:       in.ID,
		Previous: in.Previous,
	}
	return nil
}
