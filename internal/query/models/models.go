// Package models holds the wire DTOs of the remote query and validation API.
package models

import (
	"strings"

	"claimledger/internal/ledger"
	"claimledger/internal/ledger/codec"
	"claimledger/internal/pointer"
	dErrors "claimledger/pkg/domain-errors"
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	StateType ledger.StateType `json:"state_type"`
	Criteria  pointer.Criteria `json:"criteria"`
}

// Validate implements httputil.Validatable.
func (r *QueryRequest) Validate() error {
	r.StateType = ledger.StateType(strings.TrimSpace(string(r.StateType)))
	if r.StateType == "" {
		return dErrors.New(dErrors.CodeValidation, "state_type is required")
	}
	if r.Criteria.Ref == nil && r.Criteria.LinearID == nil {
		return dErrors.New(dErrors.CodeValidation, "criteria.ref or criteria.linear_id is required")
	}
	if r.Criteria.LinearID != nil && r.Criteria.LinearID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "criteria.linear_id must not be nil")
	}
	return nil
}

// QueryResponse lists the matching records, sorted by reference.
type QueryResponse struct {
	Records []codec.RecordEnvelope `json:"records"`
}

// ValidateRequest is the body of POST /v1/validate: a fully formed proposal
// with its records in typed envelopes.
type ValidateRequest struct {
	ID         string                 `json:"id"`
	Kind       string                 `json:"kind"`
	Consumed   []codec.RecordEnvelope `json:"consumed,omitempty"`
	Created    []codec.Envelope       `json:"created,omitempty"`
	Referenced []codec.RecordEnvelope `json:"referenced,omitempty"`
	Signers    []ledger.Key           `json:"signers,omitempty"`

	parsedKind ledger.TransitionKind
}

// Validate implements httputil.Validatable.
func (r *ValidateRequest) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "id is required")
	}
	kind, err := ledger.ParseTransitionKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return err
	}
	r.parsedKind = kind
	return nil
}

// Transaction decodes the envelopes with registry.
func (r *ValidateRequest) Transaction(registry *codec.Registry) (ledger.Transaction, error) {
	consumed, err := registry.DecodeRecords(r.Consumed)
	if err != nil {
		return ledger.Transaction{}, err
	}
	referenced, err := registry.DecodeRecords(r.Referenced)
	if err != nil {
		return ledger.Transaction{}, err
	}
	created := make([]ledger.ContractState, 0, len(r.Created))
	for _, env := range r.Created {
		s, err := registry.Decode(env)
		if err != nil {
			return ledger.Transaction{}, err
		}
		created = append(created, s)
	}
	kind := r.parsedKind
	if kind == "" {
		kind = ledger.TransitionKind(r.Kind)
	}
	return ledger.Transaction{
		ID:         r.ID,
		Kind:       kind,
		Consumed:   consumed,
		Created:    created,
		Referenced: referenced,
		Signers:    ledger.NewKeySet(r.Signers...),
	}, nil
}

// FromTransaction encodes tx for the wire.
func FromTransaction(registry *codec.Registry, tx ledger.Transaction) (ValidateRequest, error) {
	req := ValidateRequest{
		ID:      tx.ID,
		Kind:    string(tx.Kind),
		Signers: tx.Signers.Keys(),
	}
	var err error
	if req.Consumed, err = registry.EncodeRecords(tx.Consumed); err != nil {
		return ValidateRequest{}, err
	}
	if req.Referenced, err = registry.EncodeRecords(tx.Referenced); err != nil {
		return ValidateRequest{}, err
	}
	for _, s := range tx.Created {
		env, err := registry.Encode(s)
		if err != nil {
			return ValidateRequest{}, err
		}
		req.Created = append(req.Created, env)
	}
	return req, nil
}

// ValidateResponse is returned when a proposal is accepted. Rejections use
// the error body with rule_id and category.
type ValidateResponse struct {
	TxID     string `json:"tx_id"`
	Accepted bool   `json:"accepted"`
}

// ErrorResponse mirrors httputil.WriteError's body.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	RuleID      string `json:"rule_id,omitempty"`
	Category    string `json:"category,omitempty"`
}

// ResolveRequest is the body of POST /v1/resolve.
type ResolveRequest struct {
	Pointer pointer.Pointer `json:"pointer"`
}

// Validate implements httputil.Validatable.
func (r *ResolveRequest) Validate() error {
	if r.Pointer.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "pointer is required")
	}
	return nil
}

// ResolveResponse carries the outcome and, when resolved, the record.
type ResolveResponse struct {
	Outcome string                `json:"outcome"`
	Record  *codec.RecordEnvelope `json:"record,omitempty"`
}
