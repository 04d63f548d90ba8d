package attestation

import (
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/contract"
	"claimledger/internal/pointer"
	"claimledger/internal/violation"
)

// Validator validates attestation transitions.
type Validator = contract.Validator[Attestation]

// NewValidator returns the attestation transition rules.
func NewValidator() *Validator {
	attestor := func(a Attestation) ledger.Party { return a.Attestor }

	return contract.NewValidator(StateType, contract.Chains[Attestation]{
		ledger.Issue: {
			contract.ConsumedCount[Attestation](violation.AttestationIssueInputs, 0),
			contract.CreatedCount[Attestation](violation.AttestationIssueOutputs, 1),
			contract.SignedBy(violation.AttestationIssueSigners, contract.Created[Attestation], attestor),
		},
		ledger.Amend: {
			contract.ConsumedCount[Attestation](violation.AttestationAmendInputs, 1),
			contract.CreatedCount[Attestation](violation.AttestationAmendOutputs, 1),
			{ID: violation.AttestationAmendImmutability, Check: amendImmutable},
			{ID: violation.AttestationAmendChain, Check: amendChain},
			contract.SignedBy(violation.AttestationAmendSigners, contract.Consumed[Attestation], attestor),
		},
		ledger.Revoke: {
			contract.ConsumedCount[Attestation](violation.AttestationRevokeInputs, 1),
			contract.CreatedCount[Attestation](violation.AttestationRevokeOutputs, 0),
			contract.SignedBy(violation.AttestationRevokeSigners, contract.Consumed[Attestation], attestor),
		},
	})
}

// The pointer hash is compared too: a pointer rebuilt over another version
// of the same identity passes ImmutableEquals but not the hash check. A
// static pointer additionally keeps its exact target ref.
func amendImmutable(t contract.Transition[Attestation]) bool {
	in, out := t.SingleConsumed().State, t.SingleCreated().State
	return ledger.SameParty(in.Attestor, out.Attestor) &&
		in.ID == out.ID &&
		in.Pointer.ImmutableEquals(out.Pointer) &&
		in.Pointer.Hash() == out.Pointer.Hash() &&
		(in.Pointer.Strategy() != pointer.Static || in.Pointer.TargetRef() == out.Pointer.TargetRef())
}

// The created version's back reference, read as a static pointer, must point
// at the consumed version.
func amendChain(t contract.Transition[Attestation]) bool {
	in, out := t.SingleConsumed(), t.SingleCreated()
	if out.State.Previous == nil {
		return false
	}
	back := pointer.NewStatic(ledger.AnyStateAndRef{State: in.State, Ref: *out.State.Previous})
	return back.IsPointingTo(ledger.Erase(in))
}
