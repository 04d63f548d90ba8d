package verifier

import (
	"claimledger/internal/account"
	"claimledger/internal/attestation"
	"claimledger/internal/claim"
	"claimledger/internal/ledger/codec"
)

// DefaultRegistry decodes the built-in record types. Claims are carried with
// string values on the wire.
func DefaultRegistry() *codec.Registry {
	r := codec.NewRegistry()
	codec.RegisterJSON[claim.Claim[string]](r, claim.StateType)
	codec.RegisterJSON[attestation.Attestation](r, attestation.StateType)
	codec.RegisterJSON[account.Account](r, account.DefaultType)
	return r
}

// NewDefault returns a service with the claim, attestation and account
// validators registered in that order.
func NewDefault(opts ...Option) *Service {
	s := New(opts...)
	// Register only fails on nil or untyped validators.
	_ = s.Register(claim.NewValidator[string]())
	_ = s.Register(attestation.NewValidator())
	_ = s.Register(account.NewValidator())
	return s
}
