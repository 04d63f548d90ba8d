package ledger

import (
	"fmt"

	"claimledger/pkg/domain"
)

// StateType is an explicit type token carried by every record. Resolution
// compares tokens instead of inspecting Go types at runtime.
type StateType string

func (t StateType) String() string {
	return string(t)
}

// StateRef identifies one version of a record: the transaction that created
// it and its position among that transaction's outputs.
type StateRef struct {
	TxHash string `json:"tx_hash"`
	Index  int    `json:"index"`
}

func (r StateRef) String() string {
	return fmt.Sprintf("%s(%d)", r.TxHash, r.Index)
}

// IsZero reports whether the reference is unset.
func (r StateRef) IsZero() bool {
	return r == StateRef{}
}

// ContractState is any record that can appear in a proposal.
type ContractState interface {
	StateType() StateType
	Participants() []Party
}

// LinearState is a record whose identity survives amendment.
type LinearState interface {
	ContractState
	LinearID() domain.UniqueIdentifier
}

// ChainState is a linear record whose versions are linked to their predecessor.
type ChainState interface {
	LinearState
	PreviousStateRef() *StateRef
}

// StateAndRef pairs a record version with its reference.
type StateAndRef[S ContractState] struct {
	State S
	Ref   StateRef
}

// AnyStateAndRef is a record version with its type erased to ContractState.
type AnyStateAndRef = StateAndRef[ContractState]

// Erase widens a typed StateAndRef.
func Erase[S ContractState](sr StateAndRef[S]) AnyStateAndRef {
	return AnyStateAndRef{State: sr.State, Ref: sr.Ref}
}

// Narrow recovers a typed StateAndRef; ok is false when the record is not an S.
func Narrow[S ContractState](sr AnyStateAndRef) (StateAndRef[S], bool) {
	s, ok := sr.State.(S)
	if !ok {
		return StateAndRef[S]{}, false
	}
	return StateAndRef[S]{State: s, Ref: sr.Ref}, true
}

// LinearIDOf returns the identity of a linear record.
func LinearIDOf(s ContractState) (domain.UniqueIdentifier, bool) {
	ls, ok := s.(LinearState)
	if !ok {
		return domain.UniqueIdentifier{}, false
	}
	return ls.LinearID(), true
}
