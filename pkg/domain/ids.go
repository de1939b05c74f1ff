// Package domain holds typed identifiers shared across bounded contexts.
//
// Identifiers are UUIDs wrapped in distinct named types so that a policy id can
// never be passed where a sub-policyholder id is expected. Parse* functions are
// the trust boundary: they reject empty, malformed and nil UUIDs.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "policydesk/pkg/domain-errors"
)

type (
	PolicyID          uuid.UUID
	SubPolicyholderID uuid.UUID
	// MemberID identifies one billing group membership row. Rows created
	// locally carry an ephemeral id until the storage collaborator assigns one.
	MemberID uuid.UUID
)

func (id PolicyID) String() string          { return uuid.UUID(id).String() }
func (id SubPolicyholderID) String() string { return uuid.UUID(id).String() }
func (id MemberID) String() string          { return uuid.UUID(id).String() }

func (id PolicyID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id SubPolicyholderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }

func (id PolicyID) MarshalText() ([]byte, error)          { return uuid.UUID(id).MarshalText() }
func (id SubPolicyholderID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id MemberID) MarshalText() ([]byte, error)          { return uuid.UUID(id).MarshalText() }

func (id *PolicyID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b, "policy_id")
}

func (id *SubPolicyholderID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b, "sub_policyholder_id")
}

func (id *MemberID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b, "member_id")
}

// NewMemberID returns a fresh row id.
func NewMemberID() MemberID {
	return MemberID(uuid.New())
}

func ParsePolicyID(s string) (PolicyID, error) {
	u, err := parseUUID(s, "policy_id")
	return PolicyID(u), err
}

func ParseSubPolicyholderID(s string) (SubPolicyholderID, error) {
	u, err := parseUUID(s, "sub_policyholder_id")
	return SubPolicyholderID(u), err
}

func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s, "member_id")
	return MemberID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}

func unmarshalID(dst *uuid.UUID, b []byte, field string) error {
	u, err := parseUUID(string(b), field)
	if err != nil {
		return err
	}
	*dst = u
	return nil
}
