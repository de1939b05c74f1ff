package service

//go:generate mockgen -source=registry.go -destination=mocks/registry_mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"policydesk/internal/billinggroup/engine"
	"policydesk/internal/billinggroup/events"
	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
	"policydesk/pkg/requestcontext"
)

// GroupStore is the persistence port of the registry.
type GroupStore interface {
	List(ctx context.Context, policyID id.PolicyID) ([]models.Member, error)
	Replace(ctx context.Context, policyID id.PolicyID, members []models.Member) error
}

// Publisher announces committed replacements.
type Publisher interface {
	PublishReplaced(ctx context.Context, evt events.BillingGroupsReplaced) error
}

// TxRunner runs fn in a unit of work whose transaction travels in ctx.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Registry is the storage side of the billing group table: it owns the stored
// set, checks every replacement against the membership invariants and assigns
// row ids.
type Registry struct {
	store     GroupStore
	tx        TxRunner
	publisher Publisher
	newID     func() id.MemberID
	logger    *slog.Logger
}

var _ ports.GroupBackend = (*Registry)(nil)

type RegistryOption func(*Registry)

func WithPublisher(p Publisher) RegistryOption {
	return func(r *Registry) {
		r.publisher = p
	}
}

// WithTxRunner runs every replacement inside a transaction opened by tx, which
// stores joining a context transaction take part in.
func WithTxRunner(tx TxRunner) RegistryOption {
	return func(r *Registry) {
		if tx != nil {
			r.tx = tx
		}
	}
}

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRowIDs replaces the row id generator. Tests use it for stable ids.
func WithRowIDs(fn func() id.MemberID) RegistryOption {
	return func(r *Registry) {
		r.newID = fn
	}
}

func NewRegistry(store GroupStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:     store,
		tx:        noTx{},
		publisher: events.NopPublisher{},
		newID:     id.NewMemberID,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Registry) ListBillingGroups(ctx context.Context, policyID id.PolicyID) ([]models.Member, error) {
	members, err := r.store.List(ctx, policyID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load billing groups")
	}
	return members, nil
}

// ReplaceBillingGroups makes members the stored set of the policy. A row keeps
// the id sent by the caller; rows without one, or repeating an id already used
// earlier in the payload, get a fresh id.
func (r *Registry) ReplaceBillingGroups(ctx context.Context, policyID id.PolicyID, members []models.Member) error {
	if policyID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "policy id is required")
	}
	if err := engine.Validate(members); err != nil {
		return err
	}

	stored := r.assignIDs(members)
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		return r.store.Replace(ctx, policyID, stored)
	})
	if err != nil {
		return translateStoreError(err, "failed to store billing groups")
	}

	r.logger.InfoContext(ctx, "billing groups replaced",
		"policy_id", policyID.String(),
		"members", len(stored),
		"request_id", requestcontext.RequestID(ctx),
	)
	r.publish(ctx, policyID, stored)
	return nil
}

func (r *Registry) assignIDs(members []models.Member) []models.Member {
	stored := models.CloneMembers(members)
	seen := make(map[id.MemberID]struct{}, len(stored))
	for i := range stored {
		if _, dup := seen[stored[i].ID]; stored[i].ID.IsNil() || dup {
			stored[i].ID = r.newID()
		}
		seen[stored[i].ID] = struct{}{}
	}
	return stored
}

// publish is best effort: the replacement is already committed.
func (r *Registry) publish(ctx context.Context, policyID id.PolicyID, members []models.Member) {
	groups := engine.Groups(members)
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	evt := events.BillingGroupsReplaced{
		PolicyID:   policyID,
		Groups:     names,
		Members:    len(members),
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: requestcontext.Now(ctx).UTC().Truncate(time.Millisecond),
	}
	if err := r.publisher.PublishReplaced(ctx, evt); err != nil {
		r.logger.WarnContext(ctx, "failed to publish billing groups event",
			"policy_id", policyID.String(),
			"error", err,
		)
	}
}

func translateStoreError(err error, msg string) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeTimeout):
		return err
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "billing group rows conflict")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInternal, "stored billing groups are corrupt")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
