package models

import (
	"errors"
	"fmt"

	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
)

// EntityKind names the collaborator entity a lookup was about.
type EntityKind string

const (
	EntityPolicy                 EntityKind = "policy"
	EntitySubPolicyholders       EntityKind = "sub_policyholders"
	EntityPolicyContacts         EntityKind = "policy_contacts"
	EntitySubPolicyholderContact EntityKind = "sub_policyholder_contacts"
	EntityBillingGroups          EntityKind = "billing_groups"
)

// LookupError reports a failed collaborator read for one entity.
type LookupError struct {
	Kind EntityKind
	ID   string
	Err  error
}

func NewLookupError(kind EntityKind, entityID string, err error) *LookupError {
	return &LookupError{Kind: kind, ID: entityID, Err: err}
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("lookup %s %s failed", e.Kind, e.ID)
	}
	return fmt.Sprintf("lookup %s %s failed: %v", e.Kind, e.ID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) DomainCode() dErrors.Code {
	if errors.Is(e.Err, sentinel.ErrNotFound) {
		return dErrors.CodeNotFound
	}
	return dErrors.CodeLookupFailed
}

// PersistErrorKind classifies a failed full replacement.
type PersistErrorKind string

const (
	PersistNetwork  PersistErrorKind = "network"
	PersistServer   PersistErrorKind = "server"
	PersistTimeout  PersistErrorKind = "timeout"
	PersistRejected PersistErrorKind = "rejected"
	// PersistReconcile means the replace was acknowledged but the canonical
	// set could not be read back.
	PersistReconcile PersistErrorKind = "reconcile"
)

// PersistError reports a failed persist. The local working copy is kept.
type PersistError struct {
	Kind     PersistErrorKind
	PolicyID id.PolicyID
	Err      error
}

func NewPersistError(kind PersistErrorKind, policyID id.PolicyID, err error) *PersistError {
	return &PersistError{Kind: kind, PolicyID: policyID, Err: err}
}

func (e *PersistError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("persist billing groups for policy %s: %s", e.PolicyID, e.Kind)
	}
	return fmt.Sprintf("persist billing groups for policy %s: %s: %v", e.PolicyID, e.Kind, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) DomainCode() dErrors.Code {
	switch e.Kind {
	case PersistTimeout:
		return dErrors.CodeTimeout
	case PersistRejected:
		return dErrors.CodeInvariantViolation
	default:
		return dErrors.CodePersistFailed
	}
}

// IsTimeout reports whether err is a PersistError of kind timeout.
func IsTimeout(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe) && pe.Kind == PersistTimeout
}
