package directory

import (
	"github.com/google/uuid"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
)

// Fixed ids of the demo data so local sessions survive restarts of a
// persistent store.
var (
	DemoPolicyID = id.PolicyID(uuid.MustParse("8f2a5a0e-3c1b-4c55-9a0f-5f1d7c2b9e01"))
	DemoFilialA  = id.SubPolicyholderID(uuid.MustParse("1b7c3e52-6d0a-4f8e-8a33-0c4d9b6e7f10"))
	DemoFilialB  = id.SubPolicyholderID(uuid.MustParse("2c8d4f63-7e1b-4a9f-9b44-1d5eac7f8021"))
)

// Demo returns a directory with one policy, two sub-policyholders and a mix of
// active, inactive and email-less contacts.
func Demo() *Directory {
	d := New()
	_ = d.Load(Seed{Policies: []SeedPolicy{{
		Policy: models.Policy{
			ID:           DemoPolicyID,
			PolicyNumber: "AP-2024-0001",
			HolderName:   "Acme Indústria Ltda",
			HolderTaxID:  "12.345.678/0001-90",
		},
		Contacts: []models.Contact{
			{Name: "Financeiro", Email: strPtr("financeiro@acme.com.br")},
			{Name: "Contas a pagar", Email: strPtr("ap@acme.com.br")},
			{Name: "Antigo", Email: strPtr("antigo@acme.com.br"), Active: boolPtr(false)},
		},
		SubPolicyholders: []SeedSub{
			{
				SubPolicyholder: models.SubPolicyholder{ID: DemoFilialA, DisplayName: "Acme Filial Campinas", TaxID: "12.345.678/0002-71"},
				Contacts: []models.Contact{
					{Name: "Campinas", Email: strPtr("campinas@acme.com.br")},
					{Name: "Portaria"},
				},
			},
			{
				SubPolicyholder: models.SubPolicyholder{ID: DemoFilialB, DisplayName: "Acme Filial Recife", TaxID: "12.345.678/0003-52"},
				Contacts: []models.Contact{
					{Name: "Recife", Email: strPtr("recife@acme.com.br")},
					{Name: "Financeiro", Email: strPtr("financeiro@acme.com.br")},
				},
			},
		},
	}}})
	return d
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
