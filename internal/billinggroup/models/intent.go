package models

import (
	"strings"

	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	str "policydesk/pkg/platform/strings"
)

// EditIntent describes a create, rename, member add/remove or attribute edit
// of one billing group, as captured by the group editor.
type EditIntent struct {
	TargetGroupName string `json:"target_group_name"`
	// PreviousGroupName is the group being edited; empty when creating.
	PreviousGroupName    string                 `json:"previous_group_name,omitempty"`
	SelectedPrimary      bool                   `json:"selected_primary"`
	SelectedSecondaryIDs []id.SubPolicyholderID `json:"selected_secondary_ids"`
	LeaderRef            *MemberRef             `json:"leader,omitempty"`
	Emails               []string               `json:"emails"`
	Notes                string                 `json:"additional_mailing_notes"`
}

// Normalize trims names and drops duplicate or blank selections and
// emails. It is applied before validation.
func (i *EditIntent) Normalize() {
	i.TargetGroupName = strings.TrimSpace(i.TargetGroupName)
	i.PreviousGroupName = strings.TrimSpace(i.PreviousGroupName)
	i.Emails = str.DedupeAndTrim(i.Emails)
	if i.Emails == nil {
		i.Emails = []string{}
	}

	seen := make(map[id.SubPolicyholderID]struct{}, len(i.SelectedSecondaryIDs))
	ids := make([]id.SubPolicyholderID, 0, len(i.SelectedSecondaryIDs))
	for _, subID := range i.SelectedSecondaryIDs {
		if _, dup := seen[subID]; dup {
			continue
		}
		seen[subID] = struct{}{}
		ids = append(ids, subID)
	}
	i.SelectedSecondaryIDs = ids
}

// Validate enforces the intent preconditions. It never touches any row.
func (i *EditIntent) Validate() error {
	if i.TargetGroupName == "" {
		return dErrors.New(dErrors.CodeValidation, "group name is required")
	}
	if !i.SelectedPrimary && len(i.SelectedSecondaryIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no member selected")
	}
	for _, subID := range i.SelectedSecondaryIDs {
		if subID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "selected sub-policyholder id is nil")
		}
	}
	if i.LeaderRef != nil {
		if !i.LeaderRef.Valid() {
			return dErrors.New(dErrors.CodeValidation, "leader reference is invalid")
		}
		if !i.Selects(*i.LeaderRef) {
			return dErrors.New(dErrors.CodeValidation, "leader must be one of the selected members")
		}
	}
	return nil
}

// Selection lists the selected members: the primary first, then the
// secondaries in selection order.
func (i *EditIntent) Selection() []MemberRef {
	refs := make([]MemberRef, 0, len(i.SelectedSecondaryIDs)+1)
	if i.SelectedPrimary {
		refs = append(refs, PrimaryRef())
	}
	for _, subID := range i.SelectedSecondaryIDs {
		refs = append(refs, SecondaryRef(subID))
	}
	return refs
}

// Selects reports whether ref is part of the selection.
func (i *EditIntent) Selects(ref MemberRef) bool {
	if ref.IsPrimary() {
		return i.SelectedPrimary
	}
	subID, ok := ref.SubPolicyholderID()
	if !ok {
		return false
	}
	for _, selected := range i.SelectedSecondaryIDs {
		if selected == subID {
			return true
		}
	}
	return false
}
