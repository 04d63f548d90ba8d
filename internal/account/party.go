package account

import (
	"encoding/json"

	"claimledger/internal/ledger"
	"claimledger/internal/ledger/hashing"
	"claimledger/internal/pointer"
	"claimledger/internal/violation"
	"claimledger/pkg/domain"
	dErrors "claimledger/pkg/domain-errors"
)

// Party is the identity of an account, usable as issuer, holder or attestor.
// It holds the account's identity by value and never the Account itself;
// the account is found on demand through Resolver.
type Party struct {
	Owner       ledger.LegalIdentity
	AccountID   domain.UniqueIdentifier
	AccountType ledger.StateType
}

// OwningKey is the owner's key: the owner signs for all of its accounts.
func (p Party) OwningKey() ledger.Key {
	return p.Owner.Key
}

func (p Party) HashFields() hashing.Fields {
	return hashing.Fields{
		"kind":         partyKindAccount,
		"owner":        p.Owner.HashFields(),
		"account_id":   p.AccountID.String(),
		"account_type": p.AccountType,
	}
}

func (p Party) String() string {
	return "account:" + p.Owner.String() + "/" + string(p.AccountType) + "/" + p.AccountID.String()
}

// Resolver returns a linear pointer to the account this party denotes. t must
// be the party's account type.
func (p Party) Resolver(t ledger.StateType) (pointer.Pointer, error) {
	if t != p.AccountType {
		return pointer.Pointer{}, violation.Newf(violation.AccountPartyTypeMismatch, "want %s, got %s", p.AccountType, t)
	}
	return pointer.NewLinearTo(p.AccountID, t), nil
}

const (
	partyKindLegal   = "legal"
	partyKindAccount = "account"
)

type partyJSON struct {
	Kind        string                   `json:"kind"`
	Name        string                   `json:"name,omitempty"`
	Key         ledger.Key               `json:"key,omitempty"`
	Owner       *ledger.LegalIdentity    `json:"owner,omitempty"`
	AccountID   *domain.UniqueIdentifier `json:"account_id,omitempty"`
	AccountType ledger.StateType         `json:"account_type,omitempty"`
}

// EncodeParty renders either party kind as a tagged JSON object. A nil party
// encodes as JSON null.
func EncodeParty(p ledger.Party) (json.RawMessage, error) {
	var out partyJSON
	switch v := p.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case ledger.LegalIdentity:
		out = partyJSON{Kind: partyKindLegal, Name: v.Name, Key: v.Key}
	case Party:
		owner, id := v.Owner, v.AccountID
		out = partyJSON{Kind: partyKindAccount, Owner: &owner, AccountID: &id, AccountType: v.AccountType}
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported party kind")
	}
	return json.Marshal(out)
}

// DecodeParty is the inverse of EncodeParty.
func DecodeParty(data json.RawMessage) (ledger.Party, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var in partyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid party encoding")
	}
	switch in.Kind {
	case partyKindLegal:
		if in.Key == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "legal party requires a key")
		}
		return ledger.LegalIdentity{Name: in.Name, Key: in.Key}, nil
	case partyKindAccount:
		if in.Owner == nil || in.AccountID == nil || in.AccountType == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "account party requires owner, account_id and account_type")
		}
		return Party{Owner: *in.Owner, AccountID: *in.AccountID, AccountType: in.AccountType}, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown party kind: "+in.Kind)
	}
}
