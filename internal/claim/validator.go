package claim

import (
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/contract"
	"claimledger/internal/violation"
)

// NewValidator returns the claim transition rules for claims carrying T.
// Callers add constraints with Extend; the rules below always run first.
func NewValidator[T any]() *contract.Validator[Claim[T]] {
	issuer := func(c Claim[T]) ledger.Party { return c.Issuer }

	return contract.NewValidator(StateType, contract.Chains[Claim[T]]{
		ledger.Issue: {
			contract.ConsumedCount[Claim[T]](violation.ClaimIssueInputs, 0),
			contract.CreatedCount[Claim[T]](violation.ClaimIssueOutputs, 1),
			{ID: violation.ClaimIssueIssuerParticipant, Check: func(t contract.Transition[Claim[T]]) bool {
				out := t.SingleCreated().State
				return ledger.ContainsParty(out.Participants(), out.Issuer)
			}},
			{ID: violation.ClaimIssueHolderParticipant, Check: func(t contract.Transition[Claim[T]]) bool {
				out := t.SingleCreated().State
				return ledger.ContainsParty(out.Participants(), out.Holder)
			}},
			contract.SignedBy(violation.ClaimIssueSigners, contract.Created[Claim[T]], issuer),
		},
		ledger.Amend: {
			contract.ConsumedCount[Claim[T]](violation.ClaimAmendInputs, 1),
			contract.CreatedCount[Claim[T]](violation.ClaimAmendOutputs, 1),
			{ID: violation.ClaimAmendChain, Check: func(t contract.Transition[Claim[T]]) bool {
				prev := t.SingleCreated().State.Previous
				return prev != nil && *prev == t.SingleConsumed().Ref
			}},
			{ID: violation.ClaimAmendImmutability, Check: func(t contract.Transition[Claim[T]]) bool {
				in, out := t.SingleConsumed().State, t.SingleCreated().State
				return ledger.SameParty(in.Issuer, out.Issuer) &&
					ledger.SameParty(in.Holder, out.Holder) &&
					in.Property == out.Property &&
					in.ID == out.ID
			}},
			contract.SignedBy(violation.ClaimAmendSigners, contract.Consumed[Claim[T]], issuer),
		},
		ledger.Revoke: {
			contract.ConsumedCount[Claim[T]](violation.ClaimRevokeInputs, 1),
			contract.CreatedCount[Claim[T]](violation.ClaimRevokeOutputs, 0),
			contract.SignedBy(violation.ClaimRevokeSigners, contract.Consumed[Claim[T]], issuer),
		},
	})
}
