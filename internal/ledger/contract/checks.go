package contract

import (
	"claimledger/internal/ledger"
	"claimledger/internal/violation"
)

// ConsumedCount requires exactly n consumed records.
func ConsumedCount[S ledger.ContractState](id violation.RuleID, n int) Rule[S] {
	return Rule[S]{ID: id, Check: func(t Transition[S]) bool { return len(t.Consumed) == n }}
}

// CreatedCount requires exactly n created records.
func CreatedCount[S ledger.ContractState](id violation.RuleID, n int) Rule[S] {
	return Rule[S]{ID: id, Check: func(t Transition[S]) bool { return len(t.Created) == n }}
}

// CreatedAtLeast requires n or more created records.
func CreatedAtLeast[S ledger.ContractState](id violation.RuleID, n int) Rule[S] {
	return Rule[S]{ID: id, Check: func(t Transition[S]) bool { return len(t.Created) >= n }}
}

// SignedBy requires the key returned by party for every record selected by
// records to be among the signers.
func SignedBy[S ledger.ContractState](id violation.RuleID, records func(Transition[S]) []ledger.StateAndRef[S], party func(S) ledger.Party) Rule[S] {
	return Rule[S]{ID: id, Check: func(t Transition[S]) bool {
		for _, sr := range records(t) {
			p := party(sr.State)
			if p == nil || !t.Signers.Contains(p.OwningKey()) {
				return false
			}
		}
		return true
	}}
}

// Consumed selects consumed records for SignedBy.
func Consumed[S ledger.ContractState](t Transition[S]) []ledger.StateAndRef[S] {
	return t.Consumed
}

// Created selects created records for SignedBy.
func Created[S ledger.ContractState](t Transition[S]) []ledger.StateAndRef[S] {
	return t.Created
}
