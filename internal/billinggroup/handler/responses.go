package handler

import (
	"policydesk/internal/billinggroup/mailing"
	"policydesk/internal/billinggroup/models"
)

// EmailsResponse wraps an aggregation result. Notice is set when the lookup
// succeeded but found nothing usable.
type EmailsResponse struct {
	*mailing.Result
	Partial bool   `json:"partial"`
	Notice  string `json:"notice,omitempty"`
}

const noticeNoEmails = "no_emails_found"

// SubPolicyholdersResponse and ContactsResponse mirror the collaborator API.
type SubPolicyholdersResponse struct {
	SubPolicyholders []models.SubPolicyholder `json:"sub_policyholders"`
}

type ContactsResponse struct {
	Contacts []models.Contact `json:"contacts"`
}
