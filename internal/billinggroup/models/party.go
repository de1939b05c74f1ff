package models

import (
	"strings"

	id "policydesk/pkg/domain"
)

// Policy is the subset of a policy record the billing engine reads.
type Policy struct {
	ID           id.PolicyID `json:"id"`
	PolicyNumber string      `json:"policy_number"`
	HolderName   string      `json:"holder_name"`
	HolderTaxID  string      `json:"holder_tax_id"`
}

// SubPolicyholder is a secondary party of a policy.
type SubPolicyholder struct {
	ID          id.SubPolicyholderID `json:"id"`
	DisplayName string               `json:"display_name"`
	TaxID       string               `json:"tax_id"`
}

// PrimaryMemberInfo describes the primary policyholder as a selectable member.
type PrimaryMemberInfo struct {
	PolicyID    id.PolicyID `json:"policy_id"`
	DisplayName string      `json:"display_name"`
	TaxID       string      `json:"tax_id"`
}

// SecondaryMemberInfo describes a sub-policyholder as a selectable member.
type SecondaryMemberInfo struct {
	ID          id.SubPolicyholderID `json:"id"`
	DisplayName string               `json:"display_name"`
	TaxID       string               `json:"tax_id"`
}

// MemberOptions is everything the group editor can offer for a policy.
type MemberOptions struct {
	Primary     PrimaryMemberInfo     `json:"primary"`
	Secondaries []SecondaryMemberInfo `json:"secondaries"`
}

// Contact is a contact record of a policy or sub-policyholder. Both fields are
// optional on the wire.
type Contact struct {
	Name   string  `json:"name,omitempty"`
	Email  *string `json:"email"`
	Active *bool   `json:"active"`
}

// IsActive treats a missing flag as active.
func (c Contact) IsActive() bool {
	return c.Active == nil || *c.Active
}

// UsableEmail returns the trimmed email of an active contact.
func (c Contact) UsableEmail() (string, bool) {
	if !c.IsActive() || c.Email == nil {
		return "", false
	}
	email := strings.TrimSpace(*c.Email)
	if email == "" {
		return "", false
	}
	return email, true
}
