// Package service hosts the billing group use cases: the Editor drives
// editing sessions over local working copies, and the Registry is the
// storage-side owner of the stored table.
package service

//go:generate mockgen -source=editor.go -destination=mocks/editor_mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"

	"policydesk/internal/billinggroup/engine"
	"policydesk/internal/billinggroup/mailing"
	"policydesk/internal/billinggroup/metrics"
	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	"policydesk/internal/billinggroup/resolver"
	"policydesk/internal/billinggroup/workingset"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
	"policydesk/pkg/requestcontext"
)

// MemberResolver lists the members a policy offers for selection.
type MemberResolver interface {
	ResolveAll(ctx context.Context, policyID id.PolicyID, opts ...resolver.ResolveOption) (*models.MemberOptions, error)
}

// EmailLoader gathers mailing addresses from contact records.
type EmailLoader interface {
	LoadEmails(ctx context.Context, policyID id.PolicyID, req mailing.Request) (*mailing.Result, error)
}

// Scheduler persists working copies in the background.
type Scheduler interface {
	Schedule(policyID id.PolicyID)
	Flush(ctx context.Context, policyID id.PolicyID) error
}

// View is what an editor sees of a policy: its working copy, the groups
// derived from it and how far it is from the stored set.
type View struct {
	PolicyID id.PolicyID           `json:"policy_id"`
	Members  []models.Member       `json:"members"`
	Groups   []models.GroupSummary `json:"groups"`
	Status   workingset.Status     `json:"sync"`
}

// Edit operation names used in metrics and logs.
const (
	OpApplyEdit    = "apply_edit"
	OpRemoveMember = "remove_member"
	OpToggleLeader = "toggle_leader"
	OpDeleteGroup  = "delete_group"
)

// Editor applies edits to per-policy working copies and hands them to the
// scheduler for persistence. Every mutation is local first; callers never wait
// on the storage collaborator unless they ask for Sync.
type Editor struct {
	backend   ports.GroupBackend
	members   MemberResolver
	emails    EmailLoader
	scheduler Scheduler
	sets      *workingset.Store
	engine    *engine.Engine
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type EditorOption func(*Editor)

func WithLogger(logger *slog.Logger) EditorOption {
	return func(e *Editor) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) EditorOption {
	return func(e *Editor) {
		e.metrics = m
	}
}

func WithEngine(eng *engine.Engine) EditorOption {
	return func(e *Editor) {
		e.engine = eng
	}
}

func NewEditor(
	backend ports.GroupBackend,
	members MemberResolver,
	emails EmailLoader,
	sets *workingset.Store,
	scheduler Scheduler,
	opts ...EditorOption,
) *Editor {
	e := &Editor{
		backend:   backend,
		members:   members,
		emails:    emails,
		scheduler: scheduler,
		sets:      sets,
		engine:    engine.New(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Open loads the stored set of a policy into a working copy unless one is
// already open, and returns the current view.
func (e *Editor) Open(ctx context.Context, policyID id.PolicyID) (*View, error) {
	if err := e.ensureOpen(ctx, policyID); err != nil {
		return nil, err
	}
	return e.view(policyID)
}

// Members resolves the selectable members of a policy.
func (e *Editor) Members(ctx context.Context, policyID id.PolicyID) (*models.MemberOptions, error) {
	return e.members.ResolveAll(ctx, policyID)
}

func (e *Editor) ApplyEdit(ctx context.Context, policyID id.PolicyID, intent models.EditIntent) (*View, error) {
	return e.mutate(ctx, policyID, OpApplyEdit, func(current []models.Member) ([]models.Member, error) {
		return e.engine.ApplyGroupEdit(current, intent)
	})
}

func (e *Editor) RemoveMember(ctx context.Context, policyID id.PolicyID, rowID id.MemberID) (*View, error) {
	return e.mutate(ctx, policyID, OpRemoveMember, func(current []models.Member) ([]models.Member, error) {
		return e.engine.RemoveMember(current, rowID)
	})
}

func (e *Editor) ToggleLeader(ctx context.Context, policyID id.PolicyID, rowID id.MemberID) (*View, error) {
	return e.mutate(ctx, policyID, OpToggleLeader, func(current []models.Member) ([]models.Member, error) {
		return e.engine.ToggleLeader(current, rowID)
	})
}

func (e *Editor) DeleteGroup(ctx context.Context, policyID id.PolicyID, groupName string) (*View, error) {
	return e.mutate(ctx, policyID, OpDeleteGroup, func(current []models.Member) ([]models.Member, error) {
		return e.engine.DeleteGroup(current, groupName)
	})
}

// LoadEmails gathers the mailing addresses of the selected members. It does
// not touch the working copy.
func (e *Editor) LoadEmails(ctx context.Context, policyID id.PolicyID, req mailing.Request) (*mailing.Result, error) {
	if policyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "policy id is required")
	}
	return e.emails.LoadEmails(ctx, policyID, req)
}

// Sync persists pending edits now and returns the reconciled view. A failed
// persist is returned as the error; the view still reflects the local copy.
func (e *Editor) Sync(ctx context.Context, policyID id.PolicyID) (*View, error) {
	if err := e.ensureOpen(ctx, policyID); err != nil {
		return nil, err
	}
	syncErr := e.scheduler.Flush(ctx, policyID)
	view, err := e.view(policyID)
	if err != nil {
		return nil, err
	}
	return view, syncErr
}

// Close flushes pending edits and discards the working copy. The copy is
// kept when the flush fails or an edit lands after it, so no edit is lost.
func (e *Editor) Close(ctx context.Context, policyID id.PolicyID) error {
	if policyID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "policy id is required")
	}
	if !e.sets.Has(policyID) {
		return nil
	}
	if err := e.scheduler.Flush(ctx, policyID); err != nil {
		return err
	}
	if !e.sets.Drop(policyID) {
		return dErrors.New(dErrors.CodeConflict, "working copy was edited while closing")
	}
	e.metrics.SetWorkingSets(e.sets.Len())
	e.logger.InfoContext(ctx, "billing group working copy closed",
		"policy_id", policyID.String(),
		"actor", requestcontext.Actor(ctx),
	)
	return nil
}

func (e *Editor) mutate(ctx context.Context, policyID id.PolicyID, op string, fn func([]models.Member) ([]models.Member, error)) (*View, error) {
	if err := e.ensureOpen(ctx, policyID); err != nil {
		return nil, err
	}
	snap, err := e.sets.Mutate(policyID, fn)
	e.metrics.IncrementEdit(op, err)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// closed concurrently
			return nil, dErrors.New(dErrors.CodeNotFound, "no open working copy for policy")
		}
		return nil, err
	}
	e.scheduler.Schedule(policyID)

	e.logger.DebugContext(ctx, "billing group edit applied",
		"operation", op,
		"policy_id", policyID.String(),
		"version", snap.Version,
		"actor", requestcontext.Actor(ctx),
	)
	return e.view(policyID)
}

func (e *Editor) ensureOpen(ctx context.Context, policyID id.PolicyID) error {
	if policyID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "policy id is required")
	}
	if e.sets.Has(policyID) {
		e.sets.Touch(policyID)
		return nil
	}
	members, err := e.backend.ListBillingGroups(ctx, policyID)
	if err != nil {
		return models.NewLookupError(models.EntityBillingGroups, policyID.String(), err)
	}
	if e.sets.Load(policyID, members, requestcontext.Now(ctx)) {
		e.metrics.SetWorkingSets(e.sets.Len())
		e.logger.InfoContext(ctx, "billing group working copy opened",
			"policy_id", policyID.String(),
			"members", len(members),
		)
	}
	return nil
}

func (e *Editor) view(policyID id.PolicyID) (*View, error) {
	snap, err := e.sets.Snapshot(policyID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no open working copy for policy")
	}
	status, err := e.sets.Status(policyID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no open working copy for policy")
	}
	return &View{
		PolicyID: policyID,
		Members:  snap.Members,
		Groups:   engine.Groups(snap.Members),
		Status:   status,
	}, nil
}
