//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/store/postgres"
	id "policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
	txcontext "policydesk/pkg/platform/tx"
	"policydesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.postgres.DB))
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "billing_group_members"))
}

func (s *PostgresStoreSuite) TestReplaceAndList() {
	ctx := context.Background()
	policyID := id.PolicyID(uuid.New())
	filial := id.SubPolicyholderID(uuid.New())

	empty, err := s.store.List(ctx, policyID)
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)

	members := []models.Member{
		{ID: id.NewMemberID(), GroupName: "Matriz", Ref: models.SecondaryRef(filial), IsLeader: true, Order: 2, Emails: []string{"a@x.com"}, Notes: "attn"},
		{ID: id.NewMemberID(), GroupName: "Matriz", Ref: models.PrimaryRef(), Order: 1, Emails: []string{"a@x.com"}, Notes: "attn"},
		{ID: id.NewMemberID(), GroupName: "Filiais", Ref: models.PrimaryRef(), Emails: []string{}},
	}
	s.Require().NoError(s.store.Replace(ctx, policyID, members))

	got, err := s.store.List(ctx, policyID)
	s.Require().NoError(err)
	s.Equal(members, got)

	s.Require().NoError(s.store.Replace(ctx, policyID, nil))
	got, err = s.store.List(ctx, policyID)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *PostgresStoreSuite) TestDuplicateLeaderIsConflict() {
	ctx := context.Background()
	policyID := id.PolicyID(uuid.New())
	previous := []models.Member{{ID: id.NewMemberID(), GroupName: "Antigo", Ref: models.PrimaryRef(), Emails: []string{}}}
	s.Require().NoError(s.store.Replace(ctx, policyID, previous))

	err := s.store.Replace(ctx, policyID, []models.Member{
		{ID: id.NewMemberID(), GroupName: "Matriz", Ref: models.PrimaryRef(), IsLeader: true},
		{ID: id.NewMemberID(), GroupName: "Matriz", Ref: models.SecondaryRef(id.SubPolicyholderID(uuid.New())), IsLeader: true},
	})
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrConflict))

	got, err := s.store.List(ctx, policyID)
	s.Require().NoError(err)
	s.Equal(previous, got)
}

func (s *PostgresStoreSuite) TestReplaceJoinsContextTransaction() {
	ctx := context.Background()
	policyID := id.PolicyID(uuid.New())
	abort := errors.New("abort")

	err := txcontext.NewRunner(s.postgres.DB).RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Replace(ctx, policyID, []models.Member{
			{ID: id.NewMemberID(), GroupName: "Matriz", Ref: models.PrimaryRef()},
		}); err != nil {
			return err
		}
		return abort
	})
	s.Require().ErrorIs(err, abort)

	got, err := s.store.List(ctx, policyID)
	s.Require().NoError(err)
	s.Empty(got, "the replace rolled back with the surrounding transaction")
}
