package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the billing group table. Exactly one of the two member
// reference columns is set per row.
const Schema = `
CREATE TABLE IF NOT EXISTS billing_group_members (
    id UUID PRIMARY KEY,
    policy_id UUID NOT NULL,
    position INTEGER NOT NULL,
    group_name TEXT NOT NULL CHECK (btrim(group_name) <> ''),
    policyholder_id UUID,
    sub_policyholder_id UUID,
    is_leader BOOLEAN NOT NULL DEFAULT FALSE,
    display_order INTEGER NOT NULL DEFAULT 0,
    emails TEXT,
    additional_mailing_notes TEXT,
    CONSTRAINT billing_group_members_one_ref CHECK (num_nonnulls(policyholder_id, sub_policyholder_id) = 1)
);

CREATE INDEX IF NOT EXISTS idx_billing_group_members_policy
    ON billing_group_members (policy_id, position);
CREATE UNIQUE INDEX IF NOT EXISTS uq_billing_group_primary
    ON billing_group_members (policy_id, group_name) WHERE policyholder_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_billing_group_secondary
    ON billing_group_members (policy_id, group_name, sub_policyholder_id) WHERE sub_policyholder_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_billing_group_leader
    ON billing_group_members (policy_id, group_name) WHERE is_leader;
`

// Migrate applies Schema. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate billing group schema: %w", err)
	}
	return nil
}
