package models

import (
	"strings"

	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	str "policydesk/pkg/platform/strings"
)

// WireMember is the storage collaborator's row format. The member reference is
// encoded as two nullable foreign keys of which exactly one is set; emails are
// a single ", "-joined string.
type WireMember struct {
	ID                     string  `json:"id,omitempty"`
	GroupName              string  `json:"group_name"`
	PolicyholderID         *string `json:"policyholder_id"`
	SubPolicyholderID      *string `json:"sub_policyholder_id"`
	IsLeader               bool    `json:"is_leader"`
	Order                  int     `json:"order"`
	Emails                 *string `json:"emails"`
	AdditionalMailingNotes *string `json:"additional_mailing_notes"`
}

// WireMembers is the request and response body of the billing-groups endpoint.
type WireMembers struct {
	Members []WireMember `json:"members"`
}

// ToWire encodes a row. The primary member is keyed by the policy id.
func ToWire(policyID id.PolicyID, m Member) WireMember {
	w := WireMember{
		GroupName: m.GroupName,
		IsLeader:  m.IsLeader,
		Order:     m.Order,
		Emails:    str.JoinList(m.Emails),
	}
	if !m.ID.IsNil() {
		w.ID = m.ID.String()
	}
	if m.Ref.IsPrimary() {
		s := policyID.String()
		w.PolicyholderID = &s
	} else if subID, ok := m.Ref.SubPolicyholderID(); ok {
		s := subID.String()
		w.SubPolicyholderID = &s
	}
	if m.Notes != "" {
		notes := m.Notes
		w.AdditionalMailingNotes = &notes
	}
	return w
}

// FromWire decodes a row, rejecting rows whose member reference is ambiguous.
func FromWire(w WireMember) (Member, error) {
	m := Member{
		GroupName: strings.TrimSpace(w.GroupName),
		IsLeader:  w.IsLeader,
		Order:     w.Order,
		Emails:    str.SplitList(w.Emails),
	}
	if w.ID != "" {
		rowID, err := id.ParseMemberID(w.ID)
		if err != nil {
			return Member{}, err
		}
		m.ID = rowID
	}
	switch {
	case w.PolicyholderID != nil && w.SubPolicyholderID != nil:
		return Member{}, dErrors.New(dErrors.CodeInvariantViolation, "row references both the policyholder and a sub-policyholder")
	case w.PolicyholderID != nil:
		m.Ref = PrimaryRef()
	case w.SubPolicyholderID != nil:
		subID, err := id.ParseSubPolicyholderID(*w.SubPolicyholderID)
		if err != nil {
			return Member{}, err
		}
		m.Ref = SecondaryRef(subID)
	default:
		return Member{}, dErrors.New(dErrors.CodeInvariantViolation, "row references no member")
	}
	if w.AdditionalMailingNotes != nil {
		m.Notes = *w.AdditionalMailingNotes
	}
	return m, nil
}

// EncodeMembers encodes a full membership set.
func EncodeMembers(policyID id.PolicyID, members []Member) WireMembers {
	out := WireMembers{Members: make([]WireMember, 0, len(members))}
	for _, m := range members {
		out.Members = append(out.Members, ToWire(policyID, m))
	}
	return out
}

// DecodeMembers decodes a full membership set, failing on the first bad row.
func DecodeMembers(in WireMembers) ([]Member, error) {
	out := make([]Member, 0, len(in.Members))
	for _, w := range in.Members {
		m, err := FromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
