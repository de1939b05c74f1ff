package models

import (
	"encoding/json"
	"fmt"

	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
)

// MemberKind discriminates the two kinds of billing group member.
type MemberKind string

const (
	MemberKindPrimary   MemberKind = "primary"
	MemberKindSecondary MemberKind = "secondary"
)

// MemberRef identifies a billable party of a policy: either the policy's
// primary policyholder or one of its sub-policyholders.
//
// The fields are unexported so a ref can only be built through PrimaryRef or
// SecondaryRef. MemberRef is comparable and safe to use as a map key.
type MemberRef struct {
	kind              MemberKind
	subPolicyholderID id.SubPolicyholderID
}

// PrimaryRef references the policy's primary policyholder.
func PrimaryRef() MemberRef {
	return MemberRef{kind: MemberKindPrimary}
}

// SecondaryRef references a sub-policyholder.
func SecondaryRef(subID id.SubPolicyholderID) MemberRef {
	return MemberRef{kind: MemberKindSecondary, subPolicyholderID: subID}
}

func (r MemberRef) Kind() MemberKind { return r.kind }

func (r MemberRef) IsPrimary() bool { return r.kind == MemberKindPrimary }

// SubPolicyholderID returns the referenced sub-policyholder. ok is false for
// the primary member.
func (r MemberRef) SubPolicyholderID() (subID id.SubPolicyholderID, ok bool) {
	if r.kind != MemberKindSecondary {
		return id.SubPolicyholderID{}, false
	}
	return r.subPolicyholderID, true
}

// IsZero reports whether the ref was never set.
func (r MemberRef) IsZero() bool {
	return r.kind == ""
}

// Valid reports whether the ref is one of the two admissible shapes.
func (r MemberRef) Valid() bool {
	switch r.kind {
	case MemberKindPrimary:
		return r.subPolicyholderID.IsNil()
	case MemberKindSecondary:
		return !r.subPolicyholderID.IsNil()
	default:
		return false
	}
}

func (r MemberRef) String() string {
	switch r.kind {
	case MemberKindPrimary:
		return "primary"
	case MemberKindSecondary:
		return "secondary:" + r.subPolicyholderID.String()
	default:
		return "unset"
	}
}

type memberRefJSON struct {
	Kind              MemberKind `json:"kind"`
	SubPolicyholderID *string    `json:"sub_policyholder_id,omitempty"`
}

func (r MemberRef) MarshalJSON() ([]byte, error) {
	out := memberRefJSON{Kind: r.kind}
	if subID, ok := r.SubPolicyholderID(); ok {
		s := subID.String()
		out.SubPolicyholderID = &s
	}
	return json.Marshal(out)
}

func (r *MemberRef) UnmarshalJSON(data []byte) error {
	var in memberRefJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case MemberKindPrimary:
		if in.SubPolicyholderID != nil {
			return dErrors.New(dErrors.CodeValidation, "primary member ref must not carry a sub_policyholder_id")
		}
		*r = PrimaryRef()
	case MemberKindSecondary:
		if in.SubPolicyholderID == nil {
			return dErrors.New(dErrors.CodeValidation, "secondary member ref requires sub_policyholder_id")
		}
		subID, err := id.ParseSubPolicyholderID(*in.SubPolicyholderID)
		if err != nil {
			return err
		}
		*r = SecondaryRef(subID)
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown member kind %q", in.Kind))
	}
	return nil
}
