// Package ports declares the collaborators the billing group engine reads from
// and writes to. Adapters (HTTP clients, the in-memory directory, the local
// registry) implement them; services depend only on these interfaces.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
)

// PolicyDirectory reads policy parties.
type PolicyDirectory interface {
	GetPolicy(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	ListSubPolicyholders(ctx context.Context, policyID id.PolicyID) ([]models.SubPolicyholder, error)
}

// ContactDirectory reads contact records. Contacts of the primary member are
// the policy's contacts.
type ContactDirectory interface {
	ListPolicyContacts(ctx context.Context, policyID id.PolicyID) ([]models.Contact, error)
	ListSubPolicyholderContacts(ctx context.Context, subID id.SubPolicyholderID) ([]models.Contact, error)
}

// GroupBackend is the storage collaborator for the flat billing group table.
// ReplaceBillingGroups is a full replacement: the stored set for the policy
// becomes exactly members, with ids assigned by the backend.
type GroupBackend interface {
	ListBillingGroups(ctx context.Context, policyID id.PolicyID) ([]models.Member, error)
	ReplaceBillingGroups(ctx context.Context, policyID id.PolicyID, members []models.Member) error
}
