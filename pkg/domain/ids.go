package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "claimledger/pkg/domain-errors"
)

// maxExternalIDLength bounds caller supplied external identifiers.
const maxExternalIDLength = 256

// UniqueIdentifier is the stable identity of a record across its amendment
// chain. ID is always a non-nil UUID; ExternalID is an optional caller supplied
// label (for example an account handle) that travels with it.
//
// Equality is value equality over both fields, so UniqueIdentifier can be used
// as a map key and compared with ==.
type UniqueIdentifier struct {
	ID         uuid.UUID
	ExternalID string
}

// NewUniqueIdentifier generates a fresh identifier with an optional external id.
// The external id is not checked; labels that come from callers go through
// NewExternalIdentifier.
func NewUniqueIdentifier(externalID string) UniqueIdentifier {
	return UniqueIdentifier{ID: uuid.New(), ExternalID: externalID}
}

// NewExternalIdentifier generates a fresh identifier labelled with externalID,
// applying the same bounds as ParseUniqueIdentifier so that every identifier
// it returns survives a String/Parse round trip.
func NewExternalIdentifier(externalID string) (UniqueIdentifier, error) {
	if err := validateExternalID(externalID); err != nil {
		return UniqueIdentifier{}, err
	}
	return NewUniqueIdentifier(externalID), nil
}

// ParseUniqueIdentifier parses the String form: either "<uuid>" or
// "<external>_<uuid>". The UUID is taken from the last underscore so external
// ids may themselves contain underscores.
//
// Errors: returns CodeInvalidInput when the UUID part is empty, malformed or nil,
// or when the external id is oversized or not printable.
func ParseUniqueIdentifier(s string) (UniqueIdentifier, error) {
	external := ""
	raw := s
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		external, raw = s[:i], s[i+1:]
		if external == "" {
			return UniqueIdentifier{}, dErrors.New(dErrors.CodeInvalidInput, "external id cannot be empty when a separator is present")
		}
	}
	if err := validateExternalID(external); err != nil {
		return UniqueIdentifier{}, err
	}
	id, err := parseUUID(raw)
	if err != nil {
		return UniqueIdentifier{}, err
	}
	return UniqueIdentifier{ID: id, ExternalID: external}, nil
}

// String renders the identifier in the form accepted by ParseUniqueIdentifier.
func (u UniqueIdentifier) String() string {
	if u.ExternalID == "" {
		return u.ID.String()
	}
	return u.ExternalID + "_" + u.ID.String()
}

// IsNil reports whether the identifier carries no UUID.
func (u UniqueIdentifier) IsNil() bool {
	return u.ID == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler.
func (u UniqueIdentifier) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UniqueIdentifier) UnmarshalText(text []byte) error {
	parsed, err := ParseUniqueIdentifier(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ParseTxID validates a transaction id. Transaction ids are bare UUIDs.
func ParseTxID(s string) (string, error) {
	id, err := parseUUID(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewTxID generates a transaction id.
func NewTxID() string {
	return uuid.NewString()
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid id format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be nil")
	}
	return id, nil
}

func validateExternalID(s string) error {
	if len(s) > maxExternalIDLength {
		return dErrors.New(dErrors.CodeInvalidInput, "external id too long")
	}
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeInvalidInput, "external id must be valid UTF-8")
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return dErrors.New(dErrors.CodeInvalidInput, "external id contains invalid characters")
		}
	}
	return nil
}
