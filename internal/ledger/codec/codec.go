// Package codec encodes polymorphic ledger records as type-tagged JSON.
//
// Records cross process boundaries (the record index, the query transport and
// the audit log) as envelopes carrying the record's StateType next to its JSON
// body. A Registry maps each StateType back to the Go type to decode into.
package codec

import (
	"encoding/json"
	"fmt"
	"sync"

	"claimledger/internal/ledger"
	dErrors "claimledger/pkg/domain-errors"
)

// Envelope is a record tagged with its type.
type Envelope struct {
	Type ledger.StateType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

// RecordEnvelope is an Envelope with the record's reference.
type RecordEnvelope struct {
	Ref ledger.StateRef `json:"ref"`
	Envelope
}

type decodeFunc func(json.RawMessage) (ledger.ContractState, error)

// Registry maps state types to decoders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[ledger.StateType]decodeFunc
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[ledger.StateType]decodeFunc)}
}

// RegisterJSON decodes envelopes of stateType into S. Registering a type twice
// replaces the earlier decoder.
func RegisterJSON[S ledger.ContractState](r *Registry, stateType ledger.StateType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[stateType] = func(data json.RawMessage) (ledger.ContractState, error) {
		var s S
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Types lists the registered state types.
func (r *Registry) Types() []ledger.StateType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ledger.StateType, 0, len(r.decoders))
	for t := range r.decoders {
		out = append(out, t)
	}
	return out
}

// Encode wraps a record in an envelope.
func (r *Registry) Encode(s ledger.ContractState) (Envelope, error) {
	if s == nil {
		return Envelope{}, dErrors.New(dErrors.CodeInvalidInput, "cannot encode empty record")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", s.StateType(), err)
	}
	return Envelope{Type: s.StateType(), Data: data}, nil
}

// Decode unwraps an envelope. Unknown types fail with CodeInvalidInput.
func (r *Registry) Decode(env Envelope) (ledger.ContractState, error) {
	r.mu.RLock()
	decode, ok := r.decoders[env.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unregistered state type: "+string(env.Type))
	}
	s, err := decode(env.Data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode "+string(env.Type))
	}
	return s, nil
}

// EncodeRecord wraps a record version with its reference.
func (r *Registry) EncodeRecord(sr ledger.AnyStateAndRef) (RecordEnvelope, error) {
	env, err := r.Encode(sr.State)
	if err != nil {
		return RecordEnvelope{}, err
	}
	return RecordEnvelope{Ref: sr.Ref, Envelope: env}, nil
}

// DecodeRecord is the inverse of EncodeRecord.
func (r *Registry) DecodeRecord(env RecordEnvelope) (ledger.AnyStateAndRef, error) {
	s, err := r.Decode(env.Envelope)
	if err != nil {
		return ledger.AnyStateAndRef{}, err
	}
	return ledger.AnyStateAndRef{State: s, Ref: env.Ref}, nil
}

// EncodeRecords encodes a batch, failing on the first error.
func (r *Registry) EncodeRecords(records []ledger.AnyStateAndRef) ([]RecordEnvelope, error) {
	out := make([]RecordEnvelope, 0, len(records))
	for _, sr := range records {
		env, err := r.EncodeRecord(sr)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

// DecodeRecords decodes a batch, failing on the first error.
func (r *Registry) DecodeRecords(envs []RecordEnvelope) ([]ledger.AnyStateAndRef, error) {
	out := make([]ledger.AnyStateAndRef, 0, len(envs))
	for _, env := range envs {
		sr, err := r.DecodeRecord(env)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, nil
}
