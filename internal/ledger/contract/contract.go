// Package contract evaluates ordered rule chains over ledger transitions.
//
// A Validator owns a base chain per transition kind. Extensions are appended
// through Extend, which returns a new validator whose extra rules always run
// after the complete base chain; there is no way to remove or reorder base
// rules. Validators hold no mutable state after construction and perform no
// I/O, so a single instance is safe for concurrent use.
package contract

import (
	"claimledger/internal/ledger"
	"claimledger/internal/violation"
)

// Transition is a proposal projected onto one record type.
type Transition[S ledger.ContractState] struct {
	Kind       ledger.TransitionKind
	Consumed   []ledger.StateAndRef[S]
	Created    []ledger.StateAndRef[S]
	Referenced []ledger.AnyStateAndRef
	Signers    ledger.KeySet
}

// SingleConsumed returns the only consumed record. Rules that call it must run
// after the input count rule.
func (t Transition[S]) SingleConsumed() ledger.StateAndRef[S] {
	return t.Consumed[0]
}

// SingleCreated returns the only created record. Rules that call it must run
// after the output count rule.
func (t Transition[S]) SingleCreated() ledger.StateAndRef[S] {
	return t.Created[0]
}

// Rule is one predicate in a chain. Built-in rules leave Category and Message
// empty and take them from the violation table; extension rules set them.
type Rule[S ledger.ContractState] struct {
	ID       violation.RuleID
	Check    func(Transition[S]) bool
	Category violation.Category
	Message  string
}

func (r Rule[S]) violation() *violation.Violation {
	if r.Message != "" {
		category := r.Category
		if category == "" {
			category = violation.Structural
		}
		return violation.Custom(r.ID, category, r.Message)
	}
	return violation.New(r.ID)
}

// Chains maps each supported kind to its ordered rules.
type Chains[S ledger.ContractState] map[ledger.TransitionKind][]Rule[S]

// Validator runs base chains followed by extension chains.
type Validator[S ledger.ContractState] struct {
	stateType ledger.StateType
	base      Chains[S]
	extra     Chains[S]
}

// NewValidator builds a validator for records of stateType.
func NewValidator[S ledger.ContractState](stateType ledger.StateType, base Chains[S]) *Validator[S] {
	return &Validator[S]{
		stateType: stateType,
		base:      copyChains(base),
		extra:     Chains[S]{},
	}
}

// StateType is the record type this validator is responsible for.
func (v *Validator[S]) StateType() ledger.StateType {
	return v.stateType
}

// Extend returns a validator that additionally enforces rules for kind after
// the base chain and any earlier extensions. The receiver is not modified.
// Extending a kind without a base chain has no effect: unsupported kinds stay
// rejected.
func (v *Validator[S]) Extend(kind ledger.TransitionKind, rules ...Rule[S]) *Validator[S] {
	next := &Validator[S]{
		stateType: v.stateType,
		base:      v.base,
		extra:     copyChains(v.extra),
	}
	next.extra[kind] = append(next.extra[kind], rules...)
	return next
}

// Rules returns the effective chain for kind in evaluation order.
func (v *Validator[S]) Rules(kind ledger.TransitionKind) []Rule[S] {
	base, ok := v.base[kind]
	if !ok {
		return nil
	}
	out := make([]Rule[S], 0, len(base)+len(v.extra[kind]))
	out = append(out, base...)
	return append(out, v.extra[kind]...)
}

// ValidateTransition evaluates the chain for t.Kind. The first failing rule
// short-circuits and is returned as a *violation.Violation.
func (v *Validator[S]) ValidateTransition(t Transition[S]) error {
	rules := v.Rules(t.Kind)
	if rules == nil {
		return violation.Newf(violation.TransactionUnsupportedKind, "%s %s", v.stateType, t.Kind)
	}
	for _, r := range rules {
		if !r.Check(t) {
			return r.violation()
		}
	}
	return nil
}

// Verify projects tx onto S and validates it. Records of other types are
// ignored; they belong to other validators.
func (v *Validator[S]) Verify(tx ledger.Transaction) error {
	t, err := Project[S](tx)
	if err != nil {
		return err
	}
	return v.ValidateTransition(t)
}

// Project keeps the consumed and created records of type S.
func Project[S ledger.ContractState](tx ledger.Transaction) (Transition[S], error) {
	t := Transition[S]{
		Kind:       tx.Kind,
		Referenced: tx.Referenced,
		Signers:    tx.Signers,
	}
	for _, sr := range tx.Consumed {
		if sr.State == nil {
			return t, violation.New(violation.TransactionNilState)
		}
		if typed, ok := ledger.Narrow[S](sr); ok {
			t.Consumed = append(t.Consumed, typed)
		}
	}
	for _, sr := range tx.CreatedRefs() {
		if sr.State == nil {
			return t, violation.New(violation.TransactionNilState)
		}
		if typed, ok := ledger.Narrow[S](sr); ok {
			t.Created = append(t.Created, typed)
		}
	}
	if t.Signers == nil {
		t.Signers = ledger.NewKeySet()
	}
	return t, nil
}

func copyChains[S ledger.ContractState](in Chains[S]) Chains[S] {
	out := make(Chains[S], len(in))
	for k, rules := range in {
		out[k] = append([]Rule[S](nil), rules...)
	}
	return out
}
