package verifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"claimledger/internal/attestation"
	"claimledger/internal/claim"
	"claimledger/internal/ledger"
	"claimledger/internal/verifier"
	"claimledger/internal/verifier/metrics"
	"claimledger/internal/verifier/mocks"
	"claimledger/internal/violation"
	dErrors "claimledger/pkg/domain-errors"
	"claimledger/pkg/platform/audit"
	"claimledger/pkg/requestcontext"
)

var (
	alice = ledger.LegalIdentity{Name: "alice", Key: "key-alice"}
	bob   = ledger.LegalIdentity{Name: "bob", Key: "key-bob"}
	carol = ledger.LegalIdentity{Name: "carol", Key: "key-carol"}
)

// memo is a record type no validator is registered for.
type memo struct{ Text string }

func (memo) StateType() ledger.StateType { return "memo" }
func (memo) Participants() []ledger.Party { return nil }

// =============================================================================
// Service Suite
// =============================================================================

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	audit    *mocks.MockAuditPublisher
	recorder *mocks.MockRecorder
	metrics  *metrics.Metrics
	service  *verifier.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.audit = mocks.NewMockAuditPublisher(s.ctrl)
	s.recorder = mocks.NewMockRecorder(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = verifier.NewDefault(
		verifier.WithAuditPublisher(s.audit),
		verifier.WithRecorder(s.recorder),
		verifier.WithMetrics(s.metrics),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) issueClaim(signers ...ledger.Key) ledger.Transaction {
	return ledger.Transaction{
		ID:      "tx-issue",
		Kind:    ledger.Issue,
		Created: []ledger.ContractState{claim.New[string](alice, bob, "email", "bob@example.com")},
		Signers: ledger.NewKeySet(signers...),
	}
}

func (s *ServiceSuite) requireRule(err error, id violation.RuleID) {
	s.Require().Error(err)
	v, ok := violation.As(err)
	s.Require().True(ok, "expected a violation, got %v", err)
	s.Equal(id, v.RuleID)
}

func (s *ServiceSuite) TestRegisteredTypesInOrder() {
	s.Equal([]ledger.StateType{claim.StateType, attestation.StateType, "account"}, s.service.StateTypes())
}

func (s *ServiceSuite) TestAcceptIsAuditedAndRecorded() {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithTime(ctx, now)
	tx := s.issueClaim(alice.Key)

	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.Equal(audit.ActionTransactionValidated, event.Action)
			s.Equal(audit.DecisionAccepted, event.Decision)
			s.Equal("tx-issue", event.TxID)
			s.Equal("issue", event.Kind)
			s.Equal([]string{"claim"}, event.StateTypes)
			s.Equal("req-1", event.RequestID)
			s.Equal(now, event.Timestamp)
			s.Empty(event.RuleID)
			return nil
		})
	s.recorder.EXPECT().Apply(gomock.Any(), tx).Return(nil)

	s.Require().NoError(s.service.Validate(ctx, tx))
	s.InDelta(1, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("issue", "accepted", "")), 0)
}

func (s *ServiceSuite) TestRejectIsAuditedNotRecorded() {
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			s.Equal(audit.DecisionRejected, event.Decision)
			s.Equal(string(violation.ClaimIssueSigners), event.RuleID)
			s.Equal(string(violation.Signature), event.Category)
			s.NotEmpty(event.Message)
			return nil
		})

	err := s.service.Validate(context.Background(), s.issueClaim(bob.Key))
	s.requireRule(err, violation.ClaimIssueSigners)
	s.ErrorIs(err, violation.ErrSignature)
	s.InDelta(1, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("issue", "rejected", "signature")), 0)
}

func (s *ServiceSuite) TestStructuralRejections() {
	tests := []struct {
		name string
		tx   ledger.Transaction
		rule violation.RuleID
	}{
		{
			name: "empty proposal",
			tx:   ledger.Transaction{ID: "tx-empty", Kind: ledger.Issue},
			rule: violation.TransactionNoKnownStates,
		},
		{
			name: "only unregistered records",
			tx: ledger.Transaction{
				ID: "tx-memo", Kind: ledger.Issue,
				Created: []ledger.ContractState{memo{Text: "hi"}},
			},
			rule: violation.TransactionNoKnownStates,
		},
		{
			name: "nil created record",
			tx: ledger.Transaction{
				ID: "tx-nil", Kind: ledger.Issue,
				Created: []ledger.ContractState{nil},
			},
			rule: violation.TransactionNilState,
		},
		{
			name: "unknown kind",
			tx: ledger.Transaction{
				ID: "tx-kind", Kind: ledger.TransitionKind("merge"),
				Created: []ledger.ContractState{claim.New[string](alice, bob, "p", "v")},
			},
			rule: violation.TransactionUnsupportedKind,
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
			err := s.service.Validate(context.Background(), tt.tx)
			s.requireRule(err, tt.rule)
			s.ErrorIs(err, violation.ErrStructural)
		})
	}
}

func (s *ServiceSuite) TestUnregisteredRecordsAlongsideKnownOnesAreIgnored() {
	tx := s.issueClaim(alice.Key)
	tx.Created = append(tx.Created, memo{Text: "note"})

	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.recorder.EXPECT().Apply(gomock.Any(), gomock.Any()).Return(nil)

	s.NoError(s.service.Validate(context.Background(), tx))
}

func (s *ServiceSuite) TestMixedTransactionRunsEveryApplicableValidator() {
	c := claim.New[string](alice, bob, "email", "bob@example.com")
	target := ledger.AnyStateAndRef{State: c, Ref: ledger.StateRef{TxHash: "tx-prev"}}
	att, err := attestation.New(carol, target, attestation.Accepted)
	s.Require().NoError(err)

	tx := ledger.Transaction{
		ID:      "tx-mixed",
		Kind:    ledger.Issue,
		Created: []ledger.ContractState{c, att},
		Signers: ledger.NewKeySet(alice.Key),
	}

	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.requireRule(s.service.Validate(context.Background(), tx), violation.AttestationIssueSigners)

	tx.Signers = ledger.NewKeySet(alice.Key, carol.Key)
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.recorder.EXPECT().Apply(gomock.Any(), tx).Return(nil)
	s.NoError(s.service.Validate(context.Background(), tx))
}

func (s *ServiceSuite) TestAuditFailureDoesNotChangeVerdict() {
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("audit store down"))
	s.recorder.EXPECT().Apply(gomock.Any(), gomock.Any()).Return(nil)

	s.NoError(s.service.Validate(context.Background(), s.issueClaim(alice.Key)))
	s.InDelta(1, testutil.ToFloat64(s.metrics.AuditFailures), 0)
}

func (s *ServiceSuite) TestRecorderFailureIsInternalError() {
	s.audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.recorder.EXPECT().Apply(gomock.Any(), gomock.Any()).Return(errors.New("index unavailable"))

	err := s.service.Validate(context.Background(), s.issueClaim(alice.Key))
	s.Require().Error(err)
	_, isViolation := violation.As(err)
	s.False(isViolation)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// Registration
// =============================================================================

type stubValidator struct {
	stateType ledger.StateType
	err       error
	calls     *[]ledger.StateType
}

func (v stubValidator) StateType() ledger.StateType { return v.stateType }

func (v stubValidator) Verify(ledger.Transaction) error {
	*v.calls = append(*v.calls, v.stateType)
	return v.err
}

func TestRegister_OrderAndReplacement(t *testing.T) {
	var calls []ledger.StateType
	first := violation.Custom("test.first", violation.Structural, "first")
	second := violation.Custom("test.second", violation.Structural, "second")

	svc := verifier.New()
	require.NoError(t, svc.Register(stubValidator{stateType: "memo", err: first, calls: &calls}))
	require.NoError(t, svc.Register(stubValidator{stateType: "claim", err: second, calls: &calls}))

	tx := ledger.Transaction{
		ID: "tx", Kind: ledger.Issue,
		Created: []ledger.ContractState{claim.New[string](alice, bob, "p", "v"), memo{}},
	}
	err := svc.Validate(context.Background(), tx)
	assert.ErrorIs(t, err, first, "memo was registered first")
	assert.Equal(t, []ledger.StateType{"memo"}, calls)

	// Replacing keeps the slot.
	calls = nil
	require.NoError(t, svc.Register(stubValidator{stateType: "memo", calls: &calls}))
	err = svc.Validate(context.Background(), tx)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, []ledger.StateType{"memo", "claim"}, calls)
	assert.Equal(t, []ledger.StateType{"memo", "claim"}, svc.StateTypes())
}

func TestRegister_RejectsInvalid(t *testing.T) {
	svc := verifier.New()
	assert.True(t, dErrors.HasCode(svc.Register(nil), dErrors.CodeInvalidInput))
	assert.True(t, dErrors.HasCode(svc.Register(stubValidator{}), dErrors.CodeInvalidInput))
}

func TestDefaultRegistry_DecodesBuiltInTypes(t *testing.T) {
	registry := verifier.DefaultRegistry()
	assert.ElementsMatch(t,
		[]ledger.StateType{claim.StateType, attestation.StateType, "account"},
		registry.Types(),
	)

	c := claim.New[string](alice, bob, "email", "bob@example.com")
	env, err := registry.Encode(c)
	require.NoError(t, err)
	decoded, err := registry.Decode(env)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}
