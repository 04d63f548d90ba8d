package account

import (
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/contract"
	"claimledger/internal/violation"
)

// NewValidator returns the account transition rules. Issue and Amend accept
// more than one created account.
func NewValidator() *contract.Validator[Account] {
	return NewTypedValidator(DefaultType)
}

// NewTypedValidator registers the account rules under a custom account type.
// The rules see every Account in the transaction regardless of its type, so a
// transaction should carry accounts of one type only.
func NewTypedValidator(t ledger.StateType) *contract.Validator[Account] {
	owner := func(a Account) ledger.Party { return a.Owner }

	return contract.NewValidator(t, contract.Chains[Account]{
		ledger.Issue: {
			contract.ConsumedCount[Account](violation.AccountIssueInputs, 0),
			contract.CreatedAtLeast[Account](violation.AccountIssueOutputs, 1),
			contract.SignedBy(violation.AccountIssueSigners, contract.Created[Account], owner),
		},
		ledger.Amend: {
			contract.ConsumedCount[Account](violation.AccountAmendInputs, 1),
			contract.CreatedAtLeast[Account](violation.AccountAmendOutputs, 1),
			{ID: violation.AccountAmendChain, Check: amendChain},
			{ID: violation.AccountAmendImmutability, Check: amendImmutable},
			contract.SignedBy(violation.AccountAmendSigners, contract.Consumed[Account], owner),
		},
		ledger.Revoke: {
			contract.ConsumedCount[Account](violation.AccountRevokeInputs, 1),
			contract.CreatedCount[Account](violation.AccountRevokeOutputs, 0),
			contract.SignedBy(violation.AccountRevokeSigners, contract.Consumed[Account], owner),
		},
	})
}

func amendChain(t contract.Transition[Account]) bool {
	prev := t.SingleConsumed().Ref
	for _, created := range t.Created {
		if created.State.Previous == nil || *created.State.Previous != prev {
			return false
		}
	}
	return true
}

func amendImmutable(t contract.Transition[Account]) bool {
	in := t.SingleConsumed().State
	for _, created := range t.Created {
		out := created.State
		if out.Owner != in.Owner || out.ID != in.ID || out.StateType() != in.StateType() {
			return false
		}
	}
	return true
}
