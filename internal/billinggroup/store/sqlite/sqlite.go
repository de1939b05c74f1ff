// Package sqlite stores billing group rows in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

// Store implements the billing group store on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer; replaces are serialized by SQLite anyway
	db.SetMaxOpenConns(1)
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) List(ctx context.Context, policyID id.PolicyID) ([]models.Member, error) {
	query := `
		SELECT id, group_name, policyholder_id, sub_policyholder_id, is_leader,
		       display_order, emails, additional_mailing_notes
		FROM billing_group_members
		WHERE policy_id = ?
		ORDER BY position
	`
	rows, err := s.db.QueryContext(ctx, query, policyID.String())
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
		w.PolicyholderID = nullable(policyholder)
		w.SubPolicyholderID = nullable(sub)
		w.Emails = nullable(emails)
		w.AdditionalMailingNotes = nullable(notes)

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

// Replace deletes the policy's rows and inserts members in one transaction.
func (s *Store) Replace(ctx context.Context, policyID id.PolicyID, members []models.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM billing_group_members WHERE policy_id = ?`, policyID.String()); err != nil {
		return fmt.Errorf("delete billing group members: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO billing_group_members (
			id, policy_id, position, group_name, policyholder_id, sub_policyholder_id,
			is_leader, display_order, emails, additional_mailing_notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range members {
		w := models.ToWire(policyID, m)
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		_, err := stmt.ExecContext(ctx,
			w.ID,
			policyID.String(),
			i,
			w.GroupName,
			w.PolicyholderID,
			w.SubPolicyholderID,
			w.IsLeader,
			w.Order,
			w.Emails,
			w.AdditionalMailingNotes,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert billing group member: %w: %w", sentinel.ErrConflict, err)
			}
			return fmt.Errorf("insert billing group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
