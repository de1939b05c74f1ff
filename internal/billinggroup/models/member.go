package models

import (
	"slices"

	id "policydesk/pkg/domain"
)

// Member is one row of the flat billing group table: a party of the policy
// assigned to a named group. Emails and Notes are group-level attributes
// replicated onto every row of the group.
type Member struct {
	ID        id.MemberID `json:"id"`
	GroupName string      `json:"group_name"`
	Ref       MemberRef   `json:"member"`
	IsLeader  bool        `json:"is_leader"`
	Order     int         `json:"order"`
	Emails    []string    `json:"emails"`
	Notes     string      `json:"additional_mailing_notes"`
}

// Clone returns a copy that shares no slices with m.
func (m Member) Clone() Member {
	out := m
	out.Emails = slices.Clone(m.Emails)
	if out.Emails == nil {
		out.Emails = []string{}
	}
	return out
}

// CloneMembers deep-copies a membership set.
func CloneMembers(members []Member) []Member {
	out := make([]Member, len(members))
	for i, m := range members {
		out[i] = m.Clone()
	}
	return out
}

// IndexOf returns the position of the row with the given id, or -1.
func IndexOf(members []Member, rowID id.MemberID) int {
	return slices.IndexFunc(members, func(m Member) bool { return m.ID == rowID })
}

// GroupSummary is a read view of one billing group derived from its rows.
type GroupSummary struct {
	Name    string      `json:"name"`
	Members []MemberRef `json:"members"`
	Leader  *MemberRef  `json:"leader,omitempty"`
	Emails  []string    `json:"emails"`
	Notes   string      `json:"additional_mailing_notes"`
}
