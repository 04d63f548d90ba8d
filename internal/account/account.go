// Package account implements ownership partitions. An Account scopes records
// to a named partition of a legal identity; the derived Party lets claims and
// attestations name the partition wherever a legal identity is accepted.
package account

import (
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/hashing"
	"claimledger/pkg/domain"
)

// DefaultType is the state type of accounts that do not declare their own.
const DefaultType ledger.StateType = "account"

// Account is a named ownership partition. It is a chain state: amendments
// link to the exact prior version through Previous.
type Account struct {
	Owner    ledger.LegalIdentity    `json:"owner"`
	ID       domain.UniqueIdentifier `json:"id"`
	Type     ledger.StateType        `json:"type,omitempty"`
	Previous *ledger.StateRef        `json:"previous,omitempty"`
}

// New creates the first version of an account. The external id must be
// printable and at most 256 bytes.
func New(owner ledger.LegalIdentity, externalID string) (Account, error) {
	id, err := domain.NewExternalIdentifier(externalID)
	if err != nil {
		return Account{}, err
	}
	return Account{Owner: owner, ID: id}, nil
}

// MustNew is New for external ids known to be valid. It panics otherwise.
func MustNew(owner ledger.LegalIdentity, externalID string) Account {
	a, err := New(owner, externalID)
	if err != nil {
		panic(err)
	}
	return a
}

// NewTyped creates an account of a specialised account type.
func NewTyped(owner ledger.LegalIdentity, externalID string, t ledger.StateType) (Account, error) {
	a, err := New(owner, externalID)
	if err != nil {
		return Account{}, err
	}
	a.Type = t
	return a, nil
}

func (a Account) StateType() ledger.StateType {
	if a.Type == "" {
		return DefaultType
	}
	return a.Type
}

func (a Account) Participants() []ledger.Party {
	return []ledger.Party{a.Owner}
}

func (a Account) LinearID() domain.UniqueIdentifier {
	return a.ID
}

func (a Account) PreviousStateRef() *ledger.StateRef {
	return a.Previous
}

// Amend returns the next version of the account, linked to prev.
func (a Account) Amend(prev ledger.StateRef) Account {
	next := a
	next.Previous = &prev
	return next
}

// Party derives the addressable identity of the account.
func (a Account) Party() Party {
	return Party{Owner: a.Owner, AccountID: a.ID, AccountType: a.StateType()}
}

// Hash covers every field of this version.
func (a Account) Hash() hashing.Hash {
	return hashing.Of(hashing.Fields{
		"owner":    a.Owner.HashFields(),
		"id":       a.ID.String(),
		"type":     a.StateType(),
		"previous": a.Previous,
	})
}
