package ledger

import (
	dErrors "claimledger/pkg/domain-errors"
)

// TransitionKind is the only way a record enters, evolves or leaves its chain.
type TransitionKind string

const (
	Issue  TransitionKind = "issue"
	Amend  TransitionKind = "amend"
	Revoke TransitionKind = "revoke"
)

var validKinds = map[TransitionKind]bool{
	Issue:  true,
	Amend:  true,
	Revoke: true,
}

// ParseTransitionKind validates external input.
func ParseTransitionKind(s string) (TransitionKind, error) {
	k := TransitionKind(s)
	if !validKinds[k] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown transition kind: "+s)
	}
	return k, nil
}

func (k TransitionKind) IsValid() bool {
	return validKinds[k]
}

func (k TransitionKind) String() string {
	return string(k)
}

// Transaction is a fully formed proposal handed over by the ledger. Ordering
// and signature checking already happened upstream.
type Transaction struct {
	ID         string
	Kind       TransitionKind
	Consumed   []AnyStateAndRef
	Created    []ContractState
	Referenced []AnyStateAndRef
	Signers    KeySet
}

// CreatedRefs pairs each created record with the reference it will have once
// the transaction commits.
func (tx Transaction) CreatedRefs() []AnyStateAndRef {
	out := make([]AnyStateAndRef, len(tx.Created))
	for i, s := range tx.Created {
		out[i] = AnyStateAndRef{State: s, Ref: StateRef{TxHash: tx.ID, Index: i}}
	}
	return out
}

// StateTypes lists the distinct types among consumed and created records in
// first-seen order.
func (tx Transaction) StateTypes() []StateType {
	seen := make(map[StateType]struct{})
	var out []StateType
	add := func(s ContractState) {
		if s == nil {
			return
		}
		t := s.StateType()
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, sr := range tx.Consumed {
		add(sr.State)
	}
	for _, s := range tx.Created {
		add(s)
	}
	return out
}
