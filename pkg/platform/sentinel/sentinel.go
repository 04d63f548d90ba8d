package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Indexes, caches and remote query
// clients return these (optionally wrapped) so the resolution layer can tell a
// missing record from a broken backend.
//
// These represent factual states about resources, not rule violations:
// - ErrNotFound: record does not exist in the backend
// - ErrConflict: record already stored with different content
// - ErrInvalidState: record in wrong state for requested operation (e.g. already consumed)
// - ErrUnavailable: backend temporarily unavailable
//
// For rejected transactions use internal/violation.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
