package claim

import (
	"strings"

	"claimledger/internal/violation"
	platformstrings "claimledger/pkg/platform/strings"
)

type duplicateOptions struct {
	property   string
	ignoreCase bool
}

// DuplicateOption narrows duplicate detection.
type DuplicateOption func(*duplicateOptions)

// WithProperty only reports duplicates of property.
func WithProperty(property string) DuplicateOption {
	return func(o *duplicateOptions) {
		o.property = property
	}
}

// IgnoreCase compares properties case-insensitively.
func IgnoreCase() DuplicateOption {
	return func(o *duplicateOptions) {
		o.ignoreCase = true
	}
}

func properties[T any](claims []Claim[T]) []string {
	out := make([]string, len(claims))
	for i, c := range claims {
		out[i] = c.Property
	}
	return out
}

// DuplicateProperties returns the properties that occur on more than one claim.
func DuplicateProperties[T any](claims []Claim[T], opts ...DuplicateOption) []string {
	o := duplicateOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	props := properties(claims)
	if o.property == "" {
		return platformstrings.Duplicates(props, o.ignoreCase)
	}
	if platformstrings.Count(props, o.property, o.ignoreCase) > 1 {
		return []string{o.property}
	}
	return nil
}

// ContainsDuplicateProperties reports whether any property occurs on more
// than one claim.
func ContainsDuplicateProperties[T any](claims []Claim[T], opts ...DuplicateOption) bool {
	return len(DuplicateProperties(claims, opts...)) > 0
}

// CheckForDuplicateProperties is ContainsDuplicateProperties returning a
// DuplicateProperty violation instead of a boolean.
func CheckForDuplicateProperties[T any](claims []Claim[T], opts ...DuplicateOption) error {
	dups := DuplicateProperties(claims, opts...)
	if len(dups) == 0 {
		return nil
	}
	return violation.Newf(violation.ClaimDuplicateProperty, "duplicated: %s", strings.Join(dups, ", "))
}
