package sqlite

import "database/sql"

// schema mirrors the storage collaborator's flat table. The member reference
// is two nullable columns of which exactly one is set; partial unique indexes
// enforce one row per member per group and one leader per group.
const schema = `
CREATE TABLE IF NOT EXISTS billing_group_members (
    id TEXT PRIMARY KEY,
    policy_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    group_name TEXT NOT NULL CHECK (trim(group_name) <> ''),
    policyholder_id TEXT,
    sub_policyholder_id TEXT,
    is_leader INTEGER NOT NULL DEFAULT 0,
    display_order INTEGER NOT NULL DEFAULT 0,
    emails TEXT,
    additional_mailing_notes TEXT,
    CHECK ((policyholder_id IS NULL) <> (sub_policyholder_id IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_billing_group_members_policy ON billing_group_members(policy_id, position);
CREATE UNIQUE INDEX IF NOT EXISTS uq_billing_group_primary
    ON billing_group_members(policy_id, group_name) WHERE policyholder_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_billing_group_secondary
    ON billing_group_members(policy_id, group_name, sub_policyholder_id) WHERE sub_policyholder_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_billing_group_leader
    ON billing_group_members(policy_id, group_name) WHERE is_leader = 1;
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
