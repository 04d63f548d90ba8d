// Package verifier is the external entry point of the rule engine: it routes
// a transaction to the validators of the record types it touches and turns
// the outcome into an accept (nil) or a *violation.Violation.
package verifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"claimledger/internal/ledger"
	"claimledger/internal/verifier/metrics"
	"claimledger/internal/violation"
	dErrors "claimledger/pkg/domain-errors"
	"claimledger/pkg/platform/audit"
	"claimledger/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AuditPublisher,Recorder

// TransactionValidator checks the records of one type in a transaction.
// *contract.Validator[S] satisfies it.
type TransactionValidator interface {
	StateType() ledger.StateType
	Verify(tx ledger.Transaction) error
}

// AuditPublisher receives one event per verdict.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Recorder applies accepted transactions to a local record index.
type Recorder interface {
	Apply(ctx context.Context, tx ledger.Transaction) error
}

// Service dispatches transactions to registered validators. Registration is
// expected at startup; Validate is safe for concurrent use.
type Service struct {
	mu         sync.RWMutex
	validators []TransactionValidator
	byType     map[ledger.StateType]int

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	recorder       Recorder
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithRecorder makes Validate apply accepted transactions to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func New(opts ...Option) *Service {
	s := &Service{byType: make(map[ledger.StateType]int)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register adds v. Registering a second validator for the same state type
// replaces the first in place, keeping its position in the evaluation order.
func (s *Service) Register(v TransactionValidator) error {
	if v == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "validator is required")
	}
	t := v.StateType()
	if t == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "validator state type is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byType[t]; ok {
		s.validators[i] = v
		return nil
	}
	s.byType[t] = len(s.validators)
	s.validators = append(s.validators, v)
	return nil
}

// StateTypes lists registered types in evaluation order.
func (s *Service) StateTypes() []ledger.StateType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.StateType, len(s.validators))
	for i, v := range s.validators {
		out[i] = v.StateType()
	}
	return out
}

// Validate returns nil when every applicable validator accepts tx, the first
// *violation.Violation otherwise. Validators run in registration order.
// A non-violation error means the accepted transaction could not be recorded.
func (s *Service) Validate(ctx context.Context, tx ledger.Transaction) error {
	start := time.Now()
	err := s.validate(tx)
	s.metrics.ObserveValidateLatency(time.Since(start))
	s.report(ctx, tx, err)
	if err != nil {
		return err
	}

	if s.recorder != nil {
		if err := s.recorder.Apply(ctx, tx); err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to record accepted transaction",
					"tx_id", tx.ID,
					"error", err,
				)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record accepted transaction")
		}
	}
	return nil
}

func (s *Service) validate(tx ledger.Transaction) error {
	if !tx.Kind.IsValid() {
		return violation.Newf(violation.TransactionUnsupportedKind, "kind %q", tx.Kind)
	}
	for _, sr := range tx.Consumed {
		if sr.State == nil {
			return violation.New(violation.TransactionNilState)
		}
	}
	for _, st := range tx.Created {
		if st == nil {
			return violation.New(violation.TransactionNilState)
		}
	}

	applicable := s.applicable(tx.StateTypes())
	if len(applicable) == 0 {
		return violation.New(violation.TransactionNoKnownStates)
	}
	for _, v := range applicable {
		if err := v.Verify(tx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) applicable(present []ledger.StateType) []TransactionValidator {
	want := make(map[ledger.StateType]struct{}, len(present))
	for _, t := range present {
		want[t] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TransactionValidator
	for _, v := range s.validators {
		if _, ok := want[v.StateType()]; ok {
			out = append(out, v)
		}
	}
	return out
}

// report logs the verdict, counts it and emits the audit event. Audit
// failures are logged and never change the verdict.
func (s *Service) report(ctx context.Context, tx ledger.Transaction, verdict error) {
	types := tx.StateTypes()
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	event := audit.Event{
		Timestamp:  requestcontext.Now(ctx),
		Action:     audit.ActionTransactionValidated,
		TxID:       tx.ID,
		Kind:       string(tx.Kind),
		StateTypes: typeNames,
		Decision:   audit.DecisionAccepted,
		RequestID:  requestcontext.RequestID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		Client:     requestcontext.Client(ctx),
	}
	if verdict != nil {
		event.Decision = audit.DecisionRejected
		event.Message = verdict.Error()
		if v, ok := violation.As(verdict); ok {
			event.RuleID = string(v.RuleID)
			event.Category = string(v.Category)
			event.Message = v.Message
		}
	}

	s.metrics.IncrementDecision(event.Kind, string(event.Decision), event.Category)
	if s.logger != nil {
		if verdict == nil {
			s.logger.InfoContext(ctx, "transaction accepted",
				"tx_id", tx.ID,
				"kind", event.Kind,
				"state_types", typeNames,
			)
		} else {
			s.logger.InfoContext(ctx, "transaction rejected",
				"tx_id", tx.ID,
				"kind", event.Kind,
				"rule_id", event.RuleID,
				"category", event.Category,
				"reason", event.Message,
			)
		}
	}

	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.metrics.IncrementAuditFailure()
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event",
				"tx_id", tx.ID,
				"error", err,
			)
		}
	}
}
