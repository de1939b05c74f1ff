// Package mailing gathers the billing emails of the selected group members
// from their contact records.
package mailing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"policydesk/internal/billinggroup/metrics"
	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	str "policydesk/pkg/platform/strings"
)

const defaultConcurrency = 8

// ErrNoEmailsFound matches a NoEmailsError.
var ErrNoEmailsFound = errors.New("no emails found")

// NoEmailsError reports that every selected source was read but none of the
// contacts had a usable email.
type NoEmailsError struct {
	ContactsExamined  int
	ContactsWithEmail int
}

func (e *NoEmailsError) Error() string {
	return fmt.Sprintf("no emails found: examined %d contacts, %d with a usable email", e.ContactsExamined, e.ContactsWithEmail)
}

func (e *NoEmailsError) Is(target error) bool { return target == ErrNoEmailsFound }

func (e *NoEmailsError) DomainCode() dErrors.Code { return dErrors.CodeNotFound }

// Request selects the contact sources and carries the emails the user typed.
type Request struct {
	PrimarySelected bool                   `json:"primary_selected"`
	SecondaryIDs    []id.SubPolicyholderID `json:"secondary_ids"`
	Typed           []string               `json:"typed_emails"`
}

// Source identifies one contact list.
type Source struct {
	Kind models.EntityKind `json:"kind"`
	ID   string            `json:"id"`
}

// SourceFailure is a source that could not be read.
type SourceFailure struct {
	Source Source `json:"source"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result is the outcome of an aggregation. Emails is the typed list followed by
// the gathered emails, de-duplicated case-sensitively in first-seen order.
type Result struct {
	Emails            []string        `json:"emails"`
	Gathered          []string        `json:"gathered"`
	ContactsExamined  int             `json:"contacts_examined"`
	ContactsWithEmail int             `json:"contacts_with_email"`
	Failures          []SourceFailure `json:"failures,omitempty"`
}

// Partial reports whether any source failed.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}

// Aggregator fetches contact lists concurrently. A failing source never
// cancels its siblings.
type Aggregator struct {
	contacts    ports.ContactDirectory
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithConcurrency caps in-flight contact fetches.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func New(contacts ports.ContactDirectory, opts ...Option) *Aggregator {
	a := &Aggregator{
		contacts:    contacts,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
		tracer:      otel.Tracer("policydesk/billinggroup/mailing"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

type fetched struct {
	contacts []models.Contact
	err      error
}

// LoadEmails reads the contacts of the primary member (the policy contacts)
// and of each selected sub-policyholder, keeps the emails of active contacts
// and merges them after the typed emails.
//
// When every source fails the error is a LookupFailed aggregate. When the
// sources were read but yielded no usable email the error is a NoEmailsError
// and Result.Emails still carries the typed emails.
func (a *Aggregator) LoadEmails(ctx context.Context, policyID id.PolicyID, req Request) (*Result, error) {
	sources := sourcesFor(policyID, req)
	if len(sources) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "select at least one member")
	}

	ctx, span := a.tracer.Start(ctx, "mailing.load_emails", trace.WithAttributes(
		attribute.String("policy_id", policyID.String()),
		attribute.Int("sources", len(sources)),
	))
	defer span.End()

	results := make([]fetched, len(sources))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			contacts, err := a.fetch(ctx, policyID, src)
			a.metrics.IncrementMailingSource(string(src.Kind), err)
			results[i] = fetched{contacts: contacts, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{}
	var gathered []string
	var failures []error
	for i, r := range results {
		if r.err != nil {
			res.Failures = append(res.Failures, SourceFailure{Source: sources[i], Reason: r.err.Error(), Err: r.err})
			failures = append(failures, r.err)
			a.logger.WarnContext(ctx, "contact source failed",
				"policy_id", policyID.String(),
				"source_kind", sources[i].Kind,
				"source_id", sources[i].ID,
				"error", r.err,
			)
			continue
		}
		for _, c := range r.contacts {
			res.ContactsExamined++
			if email, ok := c.UsableEmail(); ok {
				res.ContactsWithEmail++
				gathered = append(gathered, email)
			}
		}
	}
	res.Gathered = nonNil(str.DedupeAndTrim(gathered))
	res.Emails = nonNil(str.MergeUnique(req.Typed, gathered))

	span.SetAttributes(
		attribute.Int("contacts_examined", res.ContactsExamined),
		attribute.Int("contacts_with_email", res.ContactsWithEmail),
		attribute.Int("failed_sources", len(res.Failures)),
	)

	if len(failures) == len(sources) {
		return res, dErrors.Wrap(errors.Join(failures...), dErrors.CodeLookupFailed, "all contact sources failed")
	}
	if res.ContactsWithEmail == 0 {
		return res, &NoEmailsError{ContactsExamined: res.ContactsExamined, ContactsWithEmail: res.ContactsWithEmail}
	}
	return res, nil
}

func (a *Aggregator) fetch(ctx context.Context, policyID id.PolicyID, src Source) ([]models.Contact, error) {
	switch src.Kind {
	case models.EntityPolicyContacts:
		contacts, err := a.contacts.ListPolicyContacts(ctx, policyID)
		if err != nil {
			return nil, models.NewLookupError(src.Kind, src.ID, err)
		}
		return contacts, nil
	default:
		subID, err := id.ParseSubPolicyholderID(src.ID)
		if err != nil {
			return nil, err
		}
		contacts, err := a.contacts.ListSubPolicyholderContacts(ctx, subID)
		if err != nil {
			return nil, models.NewLookupError(src.Kind, src.ID, err)
		}
		return contacts, nil
	}
}

// sourcesFor lists the selected sources, primary first, without duplicates.
func sourcesFor(policyID id.PolicyID, req Request) []Source {
	var sources []Source
	if req.PrimarySelected {
		sources = append(sources, Source{Kind: models.EntityPolicyContacts, ID: policyID.String()})
	}
	seen := make(map[id.SubPolicyholderID]struct{}, len(req.SecondaryIDs))
	for _, subID := range req.SecondaryIDs {
		if _, dup := seen[subID]; dup || subID.IsNil() {
			continue
		}
		seen[subID] = struct{}{}
		sources = append(sources, Source{Kind: models.EntitySubPolicyholderContact, ID: subID.String()})
	}
	return sources
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
