package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and collaborator
// clients return these (optionally wrapped) so services can translate them
// into domain errors:
//   - ErrNotFound: the policy, sub-policyholder or row does not exist
//   - ErrConflict: a write collided with a uniqueness constraint
//   - ErrInvalidState: the stored data violates an invariant
//   - ErrUnavailable: the backend or collaborator cannot be reached
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
