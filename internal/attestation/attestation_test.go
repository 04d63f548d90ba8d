package attestation_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"claimledger/internal/account"
	"claimledger/internal/attestation"
	"claimledger/internal/claim"
	"claimledger/internal/ledger"
	"claimledger/internal/pointer"
	"claimledger/internal/violation"
)

var (
	alice = ledger.LegalIdentity{Name: "alice", Key: "key-alice"}
	bob   = ledger.LegalIdentity{Name: "bob", Key: "key-bob"}
	carol = ledger.LegalIdentity{Name: "carol", Key: "key-carol"}
)

type noteState struct{}

func (noteState) StateType() ledger.StateType { return "note" }
func (noteState) Participants() []ledger.Party { return nil }

// =============================================================================
// Attestation Suite
// =============================================================================
// Carol attests to a claim alice issued to bob.

type AttestationSuite struct {
	suite.Suite
	validator *attestation.Validator
	target    ledger.AnyStateAndRef
	issued    attestation.Attestation
	issuedRef ledger.StateRef
}

func TestAttestationSuite(t *testing.T) {
	suite.Run(t, new(AttestationSuite))
}

func (s *AttestationSuite) SetupTest() {
	s.validator = attestation.NewValidator()
	s.target = ledger.AnyStateAndRef{
		State: claim.New[string](alice, bob, "example", "Hello, World!"),
		Ref:   ledger.StateRef{TxHash: "tx-claim", Index: 0},
	}
	var err error
	s.issued, err = attestation.New(carol, s.target, attestation.Accepted,
		attestation.WithAttestees(alice, bob, alice),
		attestation.WithMetadata(map[string]string{"source": "kyc"}),
	)
	s.Require().NoError(err)
	s.issuedRef = ledger.StateRef{TxHash: "tx-attest", Index: 0}
}

func (s *AttestationSuite) consumed() []ledger.AnyStateAndRef {
	return []ledger.AnyStateAndRef{{State: s.issued, Ref: s.issuedRef}}
}

func (s *AttestationSuite) requireRule(err error, id violation.RuleID) {
	s.Require().Error(err)
	v, ok := violation.As(err)
	s.Require().True(ok, "expected a violation, got %v", err)
	s.Equal(id, v.RuleID)
}

func (s *AttestationSuite) TestNew() {
	s.Run("attestees are deduplicated", func() {
		s.Equal([]ledger.Party{alice, bob}, s.issued.Attestees)
		s.Equal([]ledger.Party{carol, alice, bob}, s.issued.Participants())
	})

	s.Run("static pointer by default", func() {
		s.Equal(pointer.Static, s.issued.Pointer.Strategy())
		s.True(s.issued.Pointer.IsPointingTo(s.target))
	})

	s.Run("linear pointer over a non-linear target fails", func() {
		_, err := attestation.New(carol, ledger.AnyStateAndRef{State: noteState{}, Ref: ledger.StateRef{TxHash: "tx-n"}},
			attestation.Accepted, attestation.WithLinearPointer())
		s.ErrorIs(err, violation.ErrPointer)
	})

	s.Run("invalid inputs", func() {
		_, err := attestation.New(nil, s.target, attestation.Accepted)
		s.Error(err)
		_, err = attestation.New(carol, ledger.AnyStateAndRef{}, attestation.Accepted)
		s.Error(err)
		_, err = attestation.New(carol, s.target, "MAYBE")
		s.Error(err)
	})

	s.Run("metadata is copied", func() {
		md := map[string]string{"k": "v"}
		a, err := attestation.New(carol, s.target, attestation.Rejected, attestation.WithMetadata(md))
		s.Require().NoError(err)
		md["k"] = "changed"
		s.Equal("v", a.Metadata["k"])
	})
}

func (s *AttestationSuite) TestIssue() {
	s.Run("attestor signs", func() {
		s.NoError(s.validator.Verify(ledger.Transaction{
			ID: "tx-attest", Kind: ledger.Issue,
			Created:    []ledger.ContractState{s.issued},
			Referenced: []ledger.AnyStateAndRef{s.target},
			Signers:    ledger.NewKeySet(carol.Key),
		}))
	})

	s.Run("attestee signature is not enough", func() {
		err := s.validator.Verify(ledger.Transaction{
			ID: "tx-attest", Kind: ledger.Issue,
			Created: []ledger.ContractState{s.issued},
			Signers: ledger.NewKeySet(alice.Key, bob.Key),
		})
		s.requireRule(err, violation.AttestationIssueSigners)
	})

	s.Run("records of other types are ignored", func() {
		s.NoError(s.validator.Verify(ledger.Transaction{
			ID: "tx-attest", Kind: ledger.Issue,
			Created: []ledger.ContractState{s.issued, claim.New[string](alice, bob, "p", "v")},
			Signers: ledger.NewKeySet(carol.Key),
		}))
	})

	s.Run("two attestations", func() {
		s.requireRule(s.validator.Verify(ledger.Transaction{
			ID: "tx-attest", Kind: ledger.Issue,
			Created: []ledger.ContractState{s.issued, s.issued},
			Signers: ledger.NewKeySet(carol.Key),
		}), violation.AttestationIssueOutputs)
	})
}

func (s *AttestationSuite) TestAmend() {
	amend := func(next attestation.Attestation, signers ...ledger.Key) error {
		return s.validator.Verify(ledger.Transaction{
			ID: "tx-amend", Kind: ledger.Amend,
			Consumed: s.consumed(),
			Created:  []ledger.ContractState{next},
			Signers:  ledger.NewKeySet(signers...),
		})
	}

	s.Run("status change accepted", func() {
		s.NoError(amend(s.issued.Amend(s.issuedRef, attestation.Rejected, nil), carol.Key))
	})

	s.Run("attestor change", func() {
		next := s.issued.Amend(s.issuedRef, attestation.Rejected, nil)
		next.Attestor = alice
		s.requireRule(amend(next, carol.Key, alice.Key), violation.AttestationAmendImmutability)
	})

	s.Run("pointer retargeted", func() {
		other := ledger.AnyStateAndRef{State: claim.New[string](alice, bob, "other", "x"), Ref: ledger.StateRef{TxHash: "tx-other"}}
		next := s.issued.Amend(s.issuedRef, attestation.Rejected, nil)
		next.Pointer = pointer.NewStatic(other)
		err := amend(next, carol.Key)
		s.requireRule(err, violation.AttestationAmendImmutability)
		s.ErrorIs(err, violation.ErrImmutability)
	})

	s.Run("pointer rebuilt over another version of the same target", func() {
		c := s.target.State.(claim.Claim[string])
		later := ledger.AnyStateAndRef{State: c.Amend(s.target.Ref, "v2"), Ref: ledger.StateRef{TxHash: "tx-claim-2"}}
		next := s.issued.Amend(s.issuedRef, attestation.Rejected, nil)
		next.Pointer = pointer.NewStatic(later)
		s.True(next.Pointer.ImmutableEquals(s.issued.Pointer))
		s.requireRule(amend(next, carol.Key), violation.AttestationAmendImmutability)
	})

	s.Run("static target ref rewritten on the wire", func() {
		data, err := json.Marshal(s.issued.Amend(s.issuedRef, attestation.Rejected, nil))
		s.Require().NoError(err)

		var raw map[string]any
		s.Require().NoError(json.Unmarshal(data, &raw))
		ptr := raw["pointer"].(map[string]any)
		ptr["target_ref"] = map[string]any{"tx_hash": "tx-claim-v2", "index": 0}
		forged, err := json.Marshal(raw)
		s.Require().NoError(err)

		var got attestation.Attestation
		s.Error(json.Unmarshal(forged, &got))
	})

	s.Run("broken chain", func() {
		s.requireRule(amend(s.issued.Amend(ledger.StateRef{TxHash: "tx-elsewhere"}, attestation.Rejected, nil), carol.Key),
			violation.AttestationAmendChain)
	})

	s.Run("unsigned", func() {
		s.requireRule(amend(s.issued.Amend(s.issuedRef, attestation.Rejected, nil), alice.Key), violation.AttestationAmendSigners)
	})
}

func (s *AttestationSuite) TestAmendStrategySwapped() {
	acct := ledger.AnyStateAndRef{State: account.MustNew(alice, "savings"), Ref: ledger.StateRef{TxHash: "tx-acct"}}
	a, err := attestation.New(carol, acct, attestation.Accepted)
	s.Require().NoError(err)

	linear, err := pointer.NewLinear(acct)
	s.Require().NoError(err)
	s.Require().Equal(a.Pointer.TargetRef(), linear.TargetRef())

	next := a.Amend(s.issuedRef, attestation.Rejected, nil)
	next.Pointer = linear
	s.requireRule(s.validator.Verify(ledger.Transaction{
		ID: "tx-amend", Kind: ledger.Amend,
		Consumed: []ledger.AnyStateAndRef{{State: a, Ref: s.issuedRef}},
		Created:  []ledger.ContractState{next},
		Signers:  ledger.NewKeySet(carol.Key),
	}), violation.AttestationAmendImmutability)
}

func (s *AttestationSuite) TestRevoke() {
	s.Run("attestor revokes", func() {
		s.NoError(s.validator.Verify(ledger.Transaction{
			ID: "tx-revoke", Kind: ledger.Revoke,
			Consumed: s.consumed(),
			Signers:  ledger.NewKeySet(carol.Key),
		}))
	})

	s.Run("nothing consumed", func() {
		s.requireRule(s.validator.Verify(ledger.Transaction{
			ID: "tx-revoke", Kind: ledger.Revoke,
			Created: []ledger.ContractState{s.issued},
			Signers: ledger.NewKeySet(carol.Key),
		}), violation.AttestationRevokeInputs)
	})
}

func (s *AttestationSuite) TestLinearAttestationFollowsRebind() {
	id := account.MustNew(alice, "savings")
	acct := ledger.AnyStateAndRef{State: id, Ref: ledger.StateRef{TxHash: "tx-acct"}}

	a, err := attestation.New(carol, acct, attestation.Accepted, attestation.WithLinearPointer())
	s.Require().NoError(err)

	rebound, err := a.Pointer.Rebind(ledger.AnyStateAndRef{State: id.Amend(acct.Ref), Ref: ledger.StateRef{TxHash: "tx-acct-2"}})
	s.Require().NoError(err)

	next := a.Amend(s.issuedRef, attestation.Accepted, map[string]string{"rebound": "true"})
	next.Pointer = rebound
	s.NoError(s.validator.Verify(ledger.Transaction{
		ID: "tx-amend", Kind: ledger.Amend,
		Consumed: []ledger.AnyStateAndRef{{State: a, Ref: s.issuedRef}},
		Created:  []ledger.ContractState{next},
		Signers:  ledger.NewKeySet(carol.Key),
	}))
}

func (s *AttestationSuite) TestResolve() {
	tx := ledger.Transaction{
		ID: "tx-attest", Kind: ledger.Issue,
		Created:    []ledger.ContractState{s.issued},
		Referenced: []ledger.AnyStateAndRef{s.target},
	}

	res, err := s.issued.Resolve(context.Background(), nil, pointer.FromTransaction(tx))
	s.Require().NoError(err)
	s.True(res.Found())
	s.Equal(s.target, res.Record)

	res, err = s.issued.Resolve(context.Background(), pointer.NewResolver(), pointer.FromTransaction(ledger.Transaction{ID: "tx-empty"}))
	s.Require().NoError(err)
	s.False(res.Found())
}

func TestAttestationHash(t *testing.T) {
	target := ledger.AnyStateAndRef{
		State: claim.New[string](alice, bob, "example", "Hello, World!"),
		Ref:   ledger.StateRef{TxHash: "tx-claim"},
	}
	a, err := attestation.New(carol, target, attestation.Accepted, attestation.WithAttestees(alice, bob))
	require.NoError(t, err)

	t.Run("attestee order does not matter", func(t *testing.T) {
		swapped := a
		swapped.Attestees = []ledger.Party{bob, alice}
		assert.Equal(t, a.Hash(), swapped.Hash())
	})

	assert.NotEqual(t, a.Hash(), a.Amend(ledger.StateRef{TxHash: "tx-a"}, attestation.Accepted, nil).Hash())

	left := ledger.LegalIdentity{Name: "a#b", Key: "c"}
	right := ledger.LegalIdentity{Name: "a", Key: "b#c"}

	t.Run("attestor fields are hashed structurally", func(t *testing.T) {
		x, y := a, a
		x.Attestor = left
		y.Attestor = right
		assert.NotEqual(t, x.Hash(), y.Hash())
	})

	t.Run("attestee fields are hashed structurally", func(t *testing.T) {
		x, y := a, a
		x.Attestees = []ledger.Party{left}
		y.Attestees = []ledger.Party{right}
		assert.NotEqual(t, x.Hash(), y.Hash())
	})
}

func TestAttestationJSON(t *testing.T) {
	target := ledger.AnyStateAndRef{
		State: claim.New[string](alice, bob, "example", "Hello, World!"),
		Ref:   ledger.StateRef{TxHash: "tx-claim", Index: 1},
	}
	a, err := attestation.New(account.MustNew(carol, "audits").Party(), target, attestation.Accepted,
		attestation.WithAttestees(alice),
		attestation.WithMetadata(map[string]string{"source": "kyc"}),
	)
	require.NoError(t, err)
	a = a.Amend(ledger.StateRef{TxHash: "tx-a", Index: 0}, attestation.Rejected, nil)

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var got attestation.Attestation
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, a, got)
	assert.Equal(t, a.Hash(), got.Hash())
	assert.Equal(t, a.Pointer.Hash(), got.Pointer.Hash())

	t.Run("invalid status rejected", func(t *testing.T) {
		var bad attestation.Attestation
		raw := []byte(`{"attestor":{"kind":"legal","name":"carol","key":"k"},"status":"MAYBE"}`)
		assert.Error(t, json.Unmarshal(raw, &bad))
	})
}

func TestParseStatus(t *testing.T) {
	st, err := attestation.ParseStatus("ACCEPTED")
	require.NoError(t, err)
	assert.Equal(t, attestation.Accepted, st)

	_, err = attestation.ParseStatus("accepted")
	assert.Error(t, err)
}
