package client

import (
	"context"
	"net/http"

	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	id "policydesk/pkg/domain"
)

var (
	_ ports.PolicyDirectory  = (*Client)(nil)
	_ ports.ContactDirectory = (*Client)(nil)
	_ ports.GroupBackend     = (*Client)(nil)
)

// SubPolicyholdersResponse is the body of the sub-policyholder listing.
type SubPolicyholdersResponse struct {
	SubPolicyholders []models.SubPolicyholder `json:"sub_policyholders"`
}

// ContactsResponse is the body of both contact listings.
type ContactsResponse struct {
	Contacts []models.Contact `json:"contacts"`
}

func (c *Client) GetPolicy(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	var policy models.Policy
	if err := c.do(ctx, http.MethodGet, "policies/"+policyID.String(), nil, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (c *Client) ListSubPolicyholders(ctx context.Context, policyID id.PolicyID) ([]models.SubPolicyholder, error) {
	var resp SubPolicyholdersResponse
	if err := c.do(ctx, http.MethodGet, "policies/"+policyID.String()+"/sub-policyholders", nil, &resp); err != nil {
		return nil, err
	}
	if resp.SubPolicyholders == nil {
		return []models.SubPolicyholder{}, nil
	}
	return resp.SubPolicyholders, nil
}

func (c *Client) ListPolicyContacts(ctx context.Context, policyID id.PolicyID) ([]models.Contact, error) {
	var resp ContactsResponse
	if err := c.do(ctx, http.MethodGet, "policies/"+policyID.String()+"/contacts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

func (c *Client) ListSubPolicyholderContacts(ctx context.Context, subID id.SubPolicyholderID) ([]models.Contact, error) {
	var resp ContactsResponse
	if err := c.do(ctx, http.MethodGet, "sub-policyholders/"+subID.String()+"/contacts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

func (c *Client) ListBillingGroups(ctx context.Context, policyID id.PolicyID) ([]models.Member, error) {
	var resp models.WireMembers
	if err := c.do(ctx, http.MethodGet, "policies/"+policyID.String()+"/billing-groups", nil, &resp); err != nil {
		return nil, err
	}
	return models.DecodeMembers(resp)
}

// ReplaceBillingGroups sends the full set with the working row ids; the
// collaborator keeps them and only fills in missing ones.
func (c *Client) ReplaceBillingGroups(ctx context.Context, policyID id.PolicyID, members []models.Member) error {
	body := models.EncodeMembers(policyID, members)
	return c.do(ctx, http.MethodPost, "policies/"+policyID.String()+"/billing-groups", body, nil)
}
