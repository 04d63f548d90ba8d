package violation

// RuleID is the stable identifier of a validation rule.
type RuleID string

// Transaction level rules.
const (
	TransactionUnsupportedKind RuleID = "transaction.kind.unsupported"
	TransactionNoKnownStates   RuleID = "transaction.states.unknown"
	TransactionNilState        RuleID = "transaction.states.nil"
)

// Claim rules, in evaluation order per kind.
const (
	ClaimIssueInputs            RuleID = "claim.issue.inputs"
	ClaimIssueOutputs           RuleID = "claim.issue.outputs"
	ClaimIssueIssuerParticipant RuleID = "claim.issue.issuer_participant"
	ClaimIssueHolderParticipant RuleID = "claim.issue.holder_participant"
	ClaimIssueSigners           RuleID = "claim.issue.signers"

	ClaimAmendInputs       RuleID = "claim.amend.inputs"
	ClaimAmendOutputs      RuleID = "claim.amend.outputs"
	ClaimAmendChain        RuleID = "claim.amend.chain"
	ClaimAmendImmutability RuleID = "claim.amend.immutability"
	ClaimAmendSigners      RuleID = "claim.amend.signers"

	ClaimRevokeInputs  RuleID = "claim.revoke.inputs"
	ClaimRevokeOutputs RuleID = "claim.revoke.outputs"
	ClaimRevokeSigners RuleID = "claim.revoke.signers"

	ClaimDuplicateProperty RuleID = "claim.duplicate_property"
)

// Attestation rules, in evaluation order per kind.
const (
	AttestationIssueInputs  RuleID = "attestation.issue.inputs"
	AttestationIssueOutputs RuleID = "attestation.issue.outputs"
	AttestationIssueSigners RuleID = "attestation.issue.signers"

	AttestationAmendInputs       RuleID = "attestation.amend.inputs"
	AttestationAmendOutputs      RuleID = "attestation.amend.outputs"
	AttestationAmendImmutability RuleID = "attestation.amend.immutability"
	AttestationAmendChain        RuleID = "attestation.amend.chain"
	AttestationAmendSigners      RuleID = "attestation.amend.signers"

	AttestationRevokeInputs  RuleID = "attestation.revoke.inputs"
	AttestationRevokeOutputs RuleID = "attestation.revoke.outputs"
	AttestationRevokeSigners RuleID = "attestation.revoke.signers"
)

// Account rules, in evaluation order per kind.
const (
	AccountIssueInputs  RuleID = "account.issue.inputs"
	AccountIssueOutputs RuleID = "account.issue.outputs"
	AccountIssueSigners RuleID = "account.issue.signers"

	AccountAmendInputs       RuleID = "account.amend.inputs"
	AccountAmendOutputs      RuleID = "account.amend.outputs"
	AccountAmendChain        RuleID = "account.amend.chain"
	AccountAmendImmutability RuleID = "account.amend.immutability"
	AccountAmendSigners      RuleID = "account.amend.signers"

	AccountRevokeInputs  RuleID = "account.revoke.inputs"
	AccountRevokeOutputs RuleID = "account.revoke.outputs"
	AccountRevokeSigners RuleID = "account.revoke.signers"

	AccountPartyTypeMismatch RuleID = "account.party.type_mismatch"
)

// Pointer rules.
const (
	PointerTypeMismatch    RuleID = "pointer.type_mismatch"
	PointerAmbiguous       RuleID = "pointer.ambiguous"
	PointerNotFound        RuleID = "pointer.not_found"
	PointerStaticRebind    RuleID = "pointer.static_rebind"
	PointerIdentityChanged RuleID = "pointer.identity_changed"
	PointerNotLinear       RuleID = "pointer.target_not_linear"
)

type definition struct {
	category Category
	message  string
}

var definitions = map[RuleID]definition{
	TransactionUnsupportedKind: {Structural, "The transition kind is not supported for this record type."},
	TransactionNoKnownStates:   {Structural, "The proposal contains no records of a registered type."},
	TransactionNilState:        {Structural, "The proposal contains an empty record."},

	ClaimIssueInputs:            {Structural, "On claim issuing, zero claim states must be consumed."},
	ClaimIssueOutputs:           {Structural, "On claim issuing, only one claim state must be created."},
	ClaimIssueIssuerParticipant: {Participant, "On claim issuing, the issuer of the created claim state must be a participant."},
	ClaimIssueHolderParticipant: {Participant, "On claim issuing, the holder of the created claim state must be a participant."},
	ClaimIssueSigners:           {Signature, "On claim issuing, the issuer must sign the transaction."},

	ClaimAmendInputs:       {Structural, "On claim amending, only one claim state must be consumed."},
	ClaimAmendOutputs:      {Structural, "On claim amending, only one claim state must be created."},
	ClaimAmendChain:        {Pointer, "On claim amending, the previous state reference of the created claim must be equal to the state reference of the consumed claim."},
	ClaimAmendImmutability: {Immutability, "On claim amending, the issuer, holder, property and linear ID must not change."},
	ClaimAmendSigners:      {Signature, "On claim amending, the issuer must sign the transaction."},

	ClaimRevokeInputs:  {Structural, "On claim revoking, only one claim state must be consumed."},
	ClaimRevokeOutputs: {Structural, "On claim revoking, zero claim states must be created."},
	ClaimRevokeSigners: {Signature, "On claim revoking, the issuer must sign the transaction."},

	ClaimDuplicateProperty: {DuplicateProperty, "Claim properties must be unique."},

	AttestationIssueInputs:  {Structural, "On attestation issuing, zero attestation states must be consumed."},
	AttestationIssueOutputs: {Structural, "On attestation issuing, only one attestation state must be created."},
	AttestationIssueSigners: {Signature, "On attestation issuing, the attestor must sign the transaction."},

	AttestationAmendInputs:       {Structural, "On attestation amending, only one attestation state must be consumed."},
	AttestationAmendOutputs:      {Structural, "On attestation amending, only one attestation state must be created."},
	AttestationAmendImmutability: {Immutability, "On attestation amending, the attestor, linear ID and pointer must not change."},
	AttestationAmendChain:        {Pointer, "On attestation amending, the created attestation state must point to the consumed attestation state."},
	AttestationAmendSigners:      {Signature, "On attestation amending, the attestor must sign the transaction."},

	AttestationRevokeInputs:  {Structural, "On attestation revoking, only one attestation state must be consumed."},
	AttestationRevokeOutputs: {Structural, "On attestation revoking, zero attestation states must be created."},
	AttestationRevokeSigners: {Signature, "On attestation revoking, the attestor must sign the transaction."},

	AccountIssueInputs:  {Structural, "On account issuing, zero account states must be consumed."},
	AccountIssueOutputs: {Structural, "On account issuing, at least one account state must be created."},
	AccountIssueSigners: {Signature, "On account issuing, the owner of each created account must sign the transaction."},

	AccountAmendInputs:       {Structural, "On account amending, only one account state must be consumed."},
	AccountAmendOutputs:      {Structural, "On account amending, at least one account state must be created."},
	AccountAmendChain:        {Pointer, "On account amending, each created account must reference the consumed account as its previous state."},
	AccountAmendImmutability: {Immutability, "On account amending, the owner, linear ID and account type must not change."},
	AccountAmendSigners:      {Signature, "On account amending, the owner must sign the transaction."},

	AccountRevokeInputs:  {Structural, "On account revoking, only one account state must be consumed."},
	AccountRevokeOutputs: {Structural, "On account revoking, zero account states must be created."},
	AccountRevokeSigners: {Signature, "On account revoking, the owner must sign the transaction."},

	AccountPartyTypeMismatch: {Pointer, "The requested account type does not match the account type of the party."},

	PointerTypeMismatch:    {Pointer, "The resolved record type does not match the pointer target type."},
	PointerAmbiguous:       {AmbiguousResolution, "The pointer resolved to more than one record."},
	PointerNotFound:        {NotFound, "The pointer did not resolve to any record."},
	PointerStaticRebind:    {Pointer, "A static pointer cannot be re-bound."},
	PointerIdentityChanged: {Pointer, "A pointer can only be re-bound to a record with the same type and identity."},
	PointerNotLinear:       {Pointer, "A linear pointer requires a record with a stable identity."},
}

// Describe returns the category and message of a built-in rule.
func Describe(id RuleID) (Category, string, bool) {
	d, ok := definitions[id]
	return d.category, d.message, ok
}
