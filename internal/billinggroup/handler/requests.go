package handler

import (
	"policydesk/internal/billinggroup/mailing"
	"policydesk/internal/billinggroup/models"
	dErrors "policydesk/pkg/domain-errors"
)

// ReplaceRequest is the body of POST /policies/{policyID}/billing-groups.
type ReplaceRequest struct {
	Members []models.WireMember `json:"members"`

	parsed []models.Member
}

// Validate decodes every row. A row that references both or neither party is
// rejected as an invariant violation.
func (r *ReplaceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	members, err := models.DecodeMembers(models.WireMembers{Members: r.Members})
	if err != nil {
		return err
	}
	r.parsed = members
	return nil
}

// EditRequest is the body of the edit endpoint.
type EditRequest struct {
	models.EditIntent
}

func (r *EditRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Normalize()
	return r.EditIntent.Validate()
}

// EmailsRequest is the body of the mailing aggregation endpoint.
type EmailsRequest struct {
	mailing.Request
}

func (r *EmailsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if !r.PrimarySelected && len(r.SecondaryIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "select at least one member")
	}
	return nil
}
