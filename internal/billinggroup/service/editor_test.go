package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"policydesk/internal/billinggroup/mailing"
	"policydesk/internal/billinggroup/metrics"
	"policydesk/internal/billinggroup/models"
	portmocks "policydesk/internal/billinggroup/ports/mocks"
	"policydesk/internal/billinggroup/service/mocks"
	"policydesk/internal/billinggroup/workingset"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
)

type EditorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	backend   *portmocks.MockGroupBackend
	members   *mocks.MockMemberResolver
	emails    *mocks.MockEmailLoader
	scheduler *mocks.MockScheduler
	sets      *workingset.Store
	metrics   *metrics.Metrics
	editor    *Editor
	policyID  id.PolicyID
	filial    id.SubPolicyholderID
}

func TestEditorSuite(t *testing.T) {
	suite.Run(t, new(EditorSuite))
}

func (s *EditorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.backend = portmocks.NewMockGroupBackend(s.ctrl)
	s.members = mocks.NewMockMemberResolver(s.ctrl)
	s.emails = mocks.NewMockEmailLoader(s.ctrl)
	s.scheduler = mocks.NewMockScheduler(s.ctrl)
	s.sets = workingset.New()
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.editor = NewEditor(s.backend, s.members, s.emails, s.sets, s.scheduler, WithMetrics(s.metrics))
	s.policyID = id.PolicyID(uuid.New())
	s.filial = id.SubPolicyholderID(uuid.New())
}

func (s *EditorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EditorSuite) stored() []models.Member {
	return []models.Member{
		{ID: id.NewMemberID(), GroupName: "Matriz", Ref: models.PrimaryRef(), IsLeader: true, Order: 1, Emails: []string{"fin@acme.com"}},
	}
}

func (s *EditorSuite) TestOpen() {
	ctx := context.Background()

	s.Run("loads the stored set once", func() {
		stored := s.stored()
		s.backend.EXPECT().ListBillingGroups(gomock.Any(), s.policyID).Return(stored, nil).Times(1)

		view, err := s.editor.Open(ctx, s.policyID)
		s.Require().NoError(err)
		s.Equal(stored, view.Members)
		s.Require().Len(view.Groups, 1)
		s.Equal("Matriz", view.Groups[0].Name)
		s.False(view.Status.Pending)

		_, err = s.editor.Open(ctx, s.policyID)
		s.Require().NoError(err)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.WorkingSets))
	})

	s.Run("backend failure is a lookup error", func() {
		other := id.PolicyID(uuid.New())
		s.backend.EXPECT().ListBillingGroups(gomock.Any(), other).Return(nil, sentinel.ErrUnavailable)

		_, err := s.editor.Open(ctx, other)
		var lookupErr *models.LookupError
		s.Require().ErrorAs(err, &lookupErr)
		s.Equal(models.EntityBillingGroups, lookupErr.Kind)
		s.False(s.sets.Has(other))
	})

	s.Run("nil policy id", func() {
		_, err := s.editor.Open(ctx, id.PolicyID{})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *EditorSuite) TestApplyEditSchedulesPersist() {
	ctx := context.Background()
	s.backend.EXPECT().ListBillingGroups(gomock.Any(), s.policyID).Return(s.stored(), nil)
	s.scheduler.EXPECT().Schedule(s.policyID).Times(1)

	leader := models.SecondaryRef(s.filial)
	view, err := s.editor.ApplyEdit(ctx, s.policyID, models.EditIntent{
		TargetGroupName:      "Matriz",
		PreviousGroupName:    "Matriz",
		SelectedPrimary:      true,
		SelectedSecondaryIDs: []id.SubPolicyholderID{s.filial},
		LeaderRef:            &leader,
		Emails:               []string{"ap@acme.com"},
	})
	s.Require().NoError(err)
	s.Len(view.Members, 2)
	s.Equal(uint64(1), view.Status.Version)
	s.True(view.Status.Pending)
	s.Require().Len(view.Groups, 1)
	s.Require().NotNil(view.Groups[0].Leader)
	s.Equal(leader, *view.Groups[0].Leader)
	s.Equal([]string{"ap@acme.com"}, view.Groups[0].Emails)

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Edits.WithLabelValues(OpApplyEdit, "ok")))
}

func (s *EditorSuite) TestRejectedEditLeavesCopyAndSchedulesNothing() {
	ctx := context.Background()
	stored := s.stored()
	s.backend.EXPECT().ListBillingGroups(gomock.Any(), s.policyID).Return(stored, nil)
	s.scheduler.EXPECT().Schedule(gomock.Any()).Times(0)

	_, err := s.editor.ApplyEdit(ctx, s.policyID, models.EditIntent{TargetGroupName: "Matriz"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.editor.ToggleLeader(ctx, s.policyID, id.NewMemberID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	view, err := s.editor.Open(ctx, s.policyID)
	s.Require().NoError(err)
	s.Equal(stored, view.Members)
	s.Equal(uint64(0), view.Status.Version)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Edits.WithLabelValues(OpApplyEdit, "error")))
}

func (s *EditorSuite) TestRowOperations() {
	ctx := context.Background()
	stored := s.stored()
	s.backend.EXPECT().ListBillingGroups(gomock.Any(), s.policyID).Return(stored, nil)
	s.scheduler.EXPECT().Schedule(s.policyID).Times(3)

	view, err := s.editor.ToggleLeader(ctx, s.policyID, stored[0].ID)
	s.Require().NoError(err)
	s.False(view.Members[0].IsLeader)

	view, err = s.editor.RemoveMember(ctx, s.policyID, stored[0].ID)
	s.Require().NoError(err)
	s.Empty(view.Members)
	s.Empty(view.Groups)

	_, err = s.editor.DeleteGroup(ctx, s.policyID, "Matriz")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.editor.ApplyEdit(ctx, s.policyID, models.EditIntent{TargetGroupName: "Nova", SelectedPrimary: true})
	s.Require().NoError(err)
	view, err = s.editor.Open(ctx, s.policyID)
	s.Require().NoError(err)
	s.Equal(uint64(3), view.Status.Version)
}

func (s *EditorSuite) TestSync() {
	ctx := context.Background()
	s.backend.EXPECT().ListBillingGroups(gomock.Any(), s.policyID).Return(s.stored(), nil)

	s.Run("returns the view after a flush", func() {
		s.scheduler.EXPECT().Flush(gomock.Any(), s.policyID).Return(nil)
		view, err := s.editor.Sync(ctx, s.policyID)
		s.Require().NoError(err)
		s.NotNil(view)
	})

	s.Run("returns the view alongside a persist failure", func() {
		persistErr := models.NewPersistError(models.PersistServer, s.policyID, errors.New("boom"))
		s.scheduler.EXPECT().Flush(gomock.Any(), s.policyID).Return(persistErr)
		view, err := s.editor.Sync(ctx, s.policyID)
		s.Require().Error(err)
		s.ErrorIs(err, persistErr)
		s.NotNil(view)
	})
}

func (s *EditorSuite) TestClose() {
	ctx := context.Background()

	s.Run("unopened policy is a no-op", func() {
		s.NoError(s.editor.Close(ctx, s.policyID))
	})

	s.Run("keeps the copy when the flush fails", func() {
		s.backend.EXPECT().ListBillingGroups(gomock.Any(), s.policyID).Return(s.stored(), nil)
		_, err := s.editor.Open(ctx, s.policyID)
		s.Require().NoError(err)

		s.scheduler.EXPECT().Flush(gomock.Any(), s.policyID).Return(errors.New("down"))
		s.Error(s.editor.Close(ctx, s.policyID))
		s.True(s.sets.Has(s.policyID))
	})

	s.Run("keeps the copy when an edit lands after the flush", func() {
		s.scheduler.EXPECT().Flush(gomock.Any(), s.policyID).DoAndReturn(func(context.Context, id.PolicyID) error {
			_, err := s.sets.Mutate(s.policyID, func(current []models.Member) ([]models.Member, error) {
				return current[:0], nil
			})
			return err
		})
		err := s.editor.Close(ctx, s.policyID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.True(s.sets.Has(s.policyID))
		s.sets.MarkPersisted(s.policyID, 1, time.Now())
	})

	s.Run("drops the copy after a flush", func() {
		s.scheduler.EXPECT().Flush(gomock.Any(), s.policyID).Return(nil)
		s.NoError(s.editor.Close(ctx, s.policyID))
		s.False(s.sets.Has(s.policyID))
		s.Equal(float64(0), testutil.ToFloat64(s.metrics.WorkingSets))
	})
}

func (s *EditorSuite) TestMembersAndEmailsDelegate() {
	ctx := context.Background()

	opts := &models.MemberOptions{Primary: models.PrimaryMemberInfo{PolicyID: s.policyID, DisplayName: "Acme"}}
	s.members.EXPECT().ResolveAll(gomock.Any(), s.policyID).Return(opts, nil)
	got, err := s.editor.Members(ctx, s.policyID)
	s.Require().NoError(err)
	s.Equal(opts, got)

	req := mailing.Request{PrimarySelected: true}
	result := &mailing.Result{Emails: []string{"fin@acme.com"}}
	s.emails.EXPECT().LoadEmails(gomock.Any(), s.policyID, req).Return(result, nil)
	loaded, err := s.editor.LoadEmails(ctx, s.policyID, req)
	s.Require().NoError(err)
	s.Equal(result, loaded)

	s.False(s.sets.Has(s.policyID))
}
