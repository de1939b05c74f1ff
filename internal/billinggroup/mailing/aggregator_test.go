package mailing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"policydesk/internal/billinggroup/metrics"
	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports/mocks"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
)

type AggregatorSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	contacts   *mocks.MockContactDirectory
	metrics    *metrics.Metrics
	aggregator *Aggregator
	policyID   id.PolicyID
	subA       id.SubPolicyholderID
	subB       id.SubPolicyholderID
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.contacts = mocks.NewMockContactDirectory(s.ctrl)
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.aggregator = New(s.contacts, WithMetrics(s.metrics))
	s.policyID = id.PolicyID(uuid.New())
	s.subA = id.SubPolicyholderID(uuid.New())
	s.subB = id.SubPolicyholderID(uuid.New())
}

func email(s string) *string { return &s }
func active(b bool) *bool    { return &b }

func (s *AggregatorSuite) TestNoSourcesSelected() {
	res, err := s.aggregator.LoadEmails(context.Background(), s.policyID, Request{Typed: []string{"a@acme.com"}})
	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "select at least one member")
}

func (s *AggregatorSuite) TestDeduplicatesInFirstSeenOrderAfterTyped() {
	s.contacts.EXPECT().ListPolicyContacts(gomock.Any(), s.policyID).Return([]models.Contact{
		{Email: email("b")},
		{Email: email("a")},
		{Email: email("b")},
	}, nil)

	res, err := s.aggregator.LoadEmails(context.Background(), s.policyID, Request{
		PrimarySelected: true,
		Typed:           []string{"a"},
	})
	s.Require().NoError(err)
	s.Equal([]string{"a", "b"}, res.Emails)
	s.Equal([]string{"b", "a"}, res.Gathered)
	s.Equal(3, res.ContactsExamined)
	s.Equal(3, res.ContactsWithEmail)
}

func (s *AggregatorSuite) TestFiltersInactiveAndBlankContacts() {
	s.contacts.EXPECT().ListPolicyContacts(gomock.Any(), s.policyID).Return([]models.Contact{
		{Email: email(" fin@acme.com "), Active: active(true)},
		{Email: email("old@acme.com"), Active: active(false)},
		{Email: email("   ")},
		{Active: active(true)},
	}, nil)
	s.contacts.EXPECT().ListSubPolicyholderContacts(gomock.Any(), s.subA).Return([]models.Contact{
		{Email: email("Fin@acme.com")},
		{Email: email("fin@acme.com")},
	}, nil)

	res, err := s.aggregator.LoadEmails(context.Background(), s.policyID, Request{
		PrimarySelected: true,
		SecondaryIDs:    []id.SubPolicyholderID{s.subA},
	})
	s.Require().NoError(err)
	// comparison is case-sensitive
	s.Equal([]string{"fin@acme.com", "Fin@acme.com"}, res.Emails)
	s.Equal(6, res.ContactsExamined)
	s.Equal(3, res.ContactsWithEmail)
	s.False(res.Partial())
}

func (s *AggregatorSuite) TestPartialFailureIsIsolated() {
	s.contacts.EXPECT().ListPolicyContacts(gomock.Any(), s.policyID).Return(nil, sentinel.ErrUnavailable)
	s.contacts.EXPECT().ListSubPolicyholderContacts(gomock.Any(), s.subA).Return([]models.Contact{{Email: email("a@acme.com")}}, nil)
	s.contacts.EXPECT().ListSubPolicyholderContacts(gomock.Any(), s.subB).Return([]models.Contact{{Email: email("b@acme.com")}}, nil)

	res, err := s.aggregator.LoadEmails(context.Background(), s.policyID, Request{
		PrimarySelected: true,
		SecondaryIDs:    []id.SubPolicyholderID{s.subA, s.subB},
	})
	s.Require().NoError(err)
	s.Equal([]string{"a@acme.com", "b@acme.com"}, res.Emails)
	s.Require().Len(res.Failures, 1)
	s.Equal(models.EntityPolicyContacts, res.Failures[0].Source.Kind)
	s.ErrorIs(res.Failures[0].Err, sentinel.ErrUnavailable)
	s.True(res.Partial())

	s.Equal(1.0, testutil.ToFloat64(s.metrics.MailingSources.WithLabelValues(string(models.EntityPolicyContacts), "error")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.MailingSources.WithLabelValues(string(models.EntitySubPolicyholderContact), "ok")))
}

func (s *AggregatorSuite) TestAllSourcesFailed() {
	s.contacts.EXPECT().ListPolicyContacts(gomock.Any(), s.policyID).Return(nil, errors.New("boom"))
	s.contacts.EXPECT().ListSubPolicyholderContacts(gomock.Any(), s.subA).Return(nil, errors.New("boom"))

	res, err := s.aggregator.LoadEmails(context.Background(), s.policyID, Request{
		PrimarySelected: true,
		SecondaryIDs:    []id.SubPolicyholderID{s.subA},
		Typed:           []string{"typed@acme.com"},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLookupFailed))
	s.Len(res.Failures, 2)
	s.Equal([]string{"typed@acme.com"}, res.Emails)
}

func (s *AggregatorSuite) TestNoEmailsFound() {
	s.contacts.EXPECT().ListSubPolicyholderContacts(gomock.Any(), s.subA).Return([]models.Contact{
		{Email: email("gone@acme.com"), Active: active(false)},
		{Name: "no email"},
	}, nil)

	res, err := s.aggregator.LoadEmails(context.Background(), s.policyID, Request{
		SecondaryIDs: []id.SubPolicyholderID{s.subA},
		Typed:        []string{"typed@acme.com"},
	})
	s.Require().ErrorIs(err, ErrNoEmailsFound)
	var noEmails *NoEmailsError
	s.Require().ErrorAs(err, &noEmails)
	s.Equal(2, noEmails.ContactsExamined)
	s.Equal(0, noEmails.ContactsWithEmail)
	s.Equal([]string{"typed@acme.com"}, res.Emails)
	s.Empty(res.Gathered)
}

func (s *AggregatorSuite) TestFetchesConcurrently() {
	var inFlight, peak atomic.Int32
	slow := func(ctx context.Context, _ id.SubPolicyholderID) ([]models.Contact, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		return []models.Contact{{Email: email("x@acme.com")}}, nil
	}
	s.contacts.EXPECT().ListSubPolicyholderContacts(gomock.Any(), gomock.Any()).DoAndReturn(slow).Times(3)

	subC := id.SubPolicyholderID(uuid.New())
	_, err := s.aggregator.LoadEmails(context.Background(), s.policyID, Request{
		SecondaryIDs: []id.SubPolicyholderID{s.subA, s.subB, subC},
	})
	s.Require().NoError(err)
	s.Greater(peak.Load(), int32(1))
}

func (s *AggregatorSuite) TestDuplicateSelectionsFetchOnce() {
	s.contacts.EXPECT().ListSubPolicyholderContacts(gomock.Any(), s.subA).Return([]models.Contact{{Email: email("a@acme.com")}}, nil).Times(1)

	_, err := s.aggregator.LoadEmails(context.Background(), s.policyID, Request{
		SecondaryIDs: []id.SubPolicyholderID{s.subA, s.subA},
	})
	s.Require().NoError(err)
}
