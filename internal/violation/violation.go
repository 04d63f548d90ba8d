// Package violation defines the structured rejection reasons returned by the
// transition validators and by pointer resolution.
//
// Every built-in rule has a stable RuleID mapped to a category and a fixed
// message. Callers branch on the id or, more coarsely, on the category with
// errors.Is(err, violation.ErrSignature) and friends; message text is for humans.
package violation

import (
	"errors"
	"fmt"

	dErrors "claimledger/pkg/domain-errors"
)

// Category groups rules by the kind of failure.
type Category string

const (
	Structural          Category = "structural"
	Participant         Category = "participant"
	Signature           Category = "signature"
	Immutability        Category = "immutability"
	Pointer             Category = "pointer"
	AmbiguousResolution Category = "ambiguous_resolution"
	NotFound            Category = "not_found"
	DuplicateProperty   Category = "duplicate_property"
)

// Category sentinels for errors.Is.
var (
	ErrStructural          = &categoryError{Structural}
	ErrParticipant         = &categoryError{Participant}
	ErrSignature           = &categoryError{Signature}
	ErrImmutability        = &categoryError{Immutability}
	ErrPointer             = &categoryError{Pointer}
	ErrAmbiguousResolution = &categoryError{AmbiguousResolution}
	ErrNotFound            = &categoryError{NotFound}
	ErrDuplicateProperty   = &categoryError{DuplicateProperty}
)

type categoryError struct {
	category Category
}

func (e *categoryError) Error() string {
	return string(e.category) + " violation"
}

// Violation is a rule-identified rejection. All violations are terminal.
type Violation struct {
	RuleID   RuleID
	Category Category
	Message  string
}

// New builds the violation for a built-in rule. Unknown ids are reported as
// structural with a generic message so a typo never turns into an accept.
func New(id RuleID) *Violation {
	d, ok := definitions[id]
	if !ok {
		return &Violation{RuleID: id, Category: Structural, Message: "rule " + string(id) + " failed"}
	}
	return &Violation{RuleID: id, Category: d.category, Message: d.message}
}

// Newf builds the violation for a built-in rule and appends detail to its message.
func Newf(id RuleID, format string, args ...any) *Violation {
	v := New(id)
	v.Message = v.Message + " (" + fmt.Sprintf(format, args...) + ")"
	return v
}

// Custom builds a violation for a rule defined outside this package, such as
// an extension rule added to a validator.
func Custom(id RuleID, category Category, message string) *Violation {
	return &Violation{RuleID: id, Category: category, Message: message}
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s [%s]: %s", v.Category, v.RuleID, v.Message)
}

// Is matches category sentinels and violations with the same rule id.
func (v *Violation) Is(target error) bool {
	switch t := target.(type) {
	case *categoryError:
		return t.category == v.Category
	case *Violation:
		return t.RuleID == v.RuleID
	}
	return false
}

// Code maps the violation onto the shared error codes used by transports.
func (v *Violation) Code() dErrors.Code {
	switch v.Category {
	case NotFound:
		return dErrors.CodeNotFound
	case AmbiguousResolution:
		return dErrors.CodeConflict
	default:
		return dErrors.CodeRejected
	}
}

// Description is the human readable message exposed to API callers.
func (v *Violation) Description() string {
	return v.Message
}

// Fields are the machine readable attributes exposed to API callers.
func (v *Violation) Fields() map[string]string {
	return map[string]string{
		"rule_id":  string(v.RuleID),
		"category": string(v.Category),
	}
}

// As extracts a violation from an error chain.
func As(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
