package engine

import (
	"fmt"
	"slices"
	"strings"

	"policydesk/internal/billinggroup/models"
	dErrors "policydesk/pkg/domain-errors"
)

type membershipKey struct {
	group string
	ref   models.MemberRef
}

// Validate checks a full membership set against the table invariants: every
// row names a group and a well-formed member, no member appears twice in a
// group, a group has at most one leader, and all rows of a group carry the
// same emails and notes.
func Validate(members []models.Member) error {
	seen := make(map[membershipKey]struct{}, len(members))
	leaders := make(map[string]int)
	first := make(map[string]models.Member)

	for i, m := range members {
		if strings.TrimSpace(m.GroupName) == "" {
			return invariant(i, "group name is empty")
		}
		if !m.Ref.Valid() {
			return invariant(i, "member reference is invalid")
		}
		for _, email := range m.Emails {
			if email == "" || email != strings.TrimSpace(email) {
				return invariant(i, "emails must be non-empty trimmed strings")
			}
		}

		key := membershipKey{group: m.GroupName, ref: m.Ref}
		if _, dup := seen[key]; dup {
			return invariant(i, fmt.Sprintf("%s appears twice in group %q", m.Ref, m.GroupName))
		}
		seen[key] = struct{}{}

		if m.IsLeader {
			leaders[m.GroupName]++
			if leaders[m.GroupName] > 1 {
				return invariant(i, fmt.Sprintf("group %q has more than one leader", m.GroupName))
			}
		}

		if ref, ok := first[m.GroupName]; ok {
			if !slices.Equal(ref.Emails, m.Emails) || ref.Notes != m.Notes {
				return invariant(i, fmt.Sprintf("group %q rows disagree on emails or notes", m.GroupName))
			}
		} else {
			first[m.GroupName] = m
		}
	}
	return nil
}

func invariant(row int, msg string) error {
	return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("row %d: %s", row, msg))
}

// Groups summarizes the set per group, in order of first appearance.
func Groups(members []models.Member) []models.GroupSummary {
	index := make(map[string]int)
	var out []models.GroupSummary
	for _, m := range members {
		i, ok := index[m.GroupName]
		if !ok {
			i = len(out)
			index[m.GroupName] = i
			out = append(out, models.GroupSummary{
				Name:   m.GroupName,
				Emails: slices.Clone(m.Emails),
				Notes:  m.Notes,
			})
		}
		out[i].Members = append(out[i].Members, m.Ref)
		if m.IsLeader {
			ref := m.Ref
			out[i].Leader = &ref
		}
	}
	if out == nil {
		return []models.GroupSummary{}
	}
	return out
}
