// Package postgres stores billing group rows in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
	txcontext "policydesk/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Store persists billing group rows in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed billing group store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// List reads inside a transaction carried in ctx when there is one.
func (s *Store) List(ctx context.Context, policyID id.PolicyID) ([]models.Member, error) {
	var q queryer = s.db
	if tx, ok := txcontext.From(ctx); ok {
		q = tx
	}
	query := `
		SELECT id, group_name, policyholder_id, sub_policyholder_id, is_leader,
		       display_order, emails, additional_mailing_notes
		FROM billing_group_members
		WHERE policy_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, policyID.String())
	if err != nil {
		return nil, fmt.Errorf("list billing group members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var (
			w                 models.WireMember
			policyholder, sub sql.NullString
			emails, notes     sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.GroupName, &policyholder, &sub, &w.IsLeader, &w.Order, &emails, &notes); err != nil {
			return nil, fmt.Errorf("scan billing group member: %w", err)
		}
		w.PolicyholderID = nullString(policyholder)
		w.SubPolicyholderID = nullString(sub)
		w.Emails = nullString(emails)
		w.AdditionalMailingNotes = nullString(notes)

		m, err := models.FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("decode billing group member %s: %w: %w", w.ID, sentinel.ErrInvalidState, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate billing group members: %w", err)
	}
	return members, nil
}

// Replace swaps the policy's rows for members. It joins a transaction carried
// in ctx, otherwise it runs in its own.
func (s *Store) Replace(ctx context.Context, policyID id.PolicyID, members []models.Member) error {
	if tx, ok := txcontext.From(ctx); ok {
		return s.replace(ctx, tx, policyID, members)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.replace(ctx, tx, policyID, members); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) replace(ctx context.Context, tx *sql.Tx, policyID id.PolicyID, members []models.Member) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM billing_group_members WHERE policy_id = $1`, policyID.String()); err != nil {
		return fmt.Errorf("delete billing group members: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	n := len(members)
	var (
		ids           = make([]string, n)
		positions     = make([]int64, n)
		groupNames    = make([]string, n)
		policyholders = make([]sql.NullString, n)
		subs          = make([]sql.NullString, n)
		leaders       = make([]bool, n)
		orders        = make([]int64, n)
		emails        = make([]sql.NullString, n)
		notes         = make([]sql.NullString, n)
	)
	for i, m := range members {
		w := models.ToWire(policyID, m)
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		ids[i] = w.ID
		positions[i] = int64(i)
		groupNames[i] = w.GroupName
		policyholders[i] = toNullString(w.PolicyholderID)
		subs[i] = toNullString(w.SubPolicyholderID)
		leaders[i] = w.IsLeader
		orders[i] = int64(w.Order)
		emails[i] = toNullString(w.Emails)
		notes[i] = toNullString(w.AdditionalMailingNotes)
	}

	// One round trip for the whole set.
	query := `
		INSERT INTO billing_group_members (
			id, policy_id, position, group_name, policyholder_id, sub_policyholder_id,
			is_leader, display_order, emails, additional_mailing_notes
		)
		SELECT u.id, $1, u.position, u.group_name, u.policyholder_id, u.sub_policyholder_id,
		       u.is_leader, u.display_order, u.emails, u.notes
		FROM unnest(
			$2::uuid[], $3::int[], $4::text[], $5::uuid[], $6::uuid[],
			$7::bool[], $8::int[], $9::text[], $10::text[]
		) AS u(id, position, group_name, policyholder_id, sub_policyholder_id,
		       is_leader, display_order, emails, notes)
	`
	_, err := tx.ExecContext(ctx, query,
		policyID.String(),
		pq.Array(ids),
		pq.Array(positions),
		pq.Array(groupNames),
		pq.Array(policyholders),
		pq.Array(subs),
		pq.Array(leaders),
		pq.Array(orders),
		pq.Array(emails),
		pq.Array(notes),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert billing group members: %w: %w", sentinel.ErrConflict, err)
		}
		return fmt.Errorf("insert billing group members: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
