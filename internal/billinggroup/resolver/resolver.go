// Package resolver turns a policy into the list of members a billing group can
// contain: the primary policyholder and the policy's sub-policyholders.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	id "policydesk/pkg/domain"
)

// Resolver reads member information through a PolicyDirectory.
type Resolver struct {
	directory ports.PolicyDirectory
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = tracer
	}
}

func New(directory ports.PolicyDirectory, opts ...Option) *Resolver {
	r := &Resolver{
		directory: directory,
		logger:    slog.Default(),
		tracer:    otel.Tracer("policydesk/billinggroup/resolver"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ResolvePrimary returns the primary policyholder of a policy.
func (r *Resolver) ResolvePrimary(ctx context.Context, policyID id.PolicyID) (models.PrimaryMemberInfo, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.primary", trace.WithAttributes(attribute.String("policy_id", policyID.String())))
	defer span.End()

	policy, err := r.directory.GetPolicy(ctx, policyID)
	if err != nil {
		err = asLookupError(models.EntityPolicy, policyID.String(), err)
		span.SetStatus(codes.Error, err.Error())
		return models.PrimaryMemberInfo{}, err
	}
	return models.PrimaryMemberInfo{
		PolicyID:    policyID,
		DisplayName: displayName(policy.HolderName, policy.PolicyNumber),
		TaxID:       policy.HolderTaxID,
	}, nil
}

// ResolveSecondaries returns the sub-policyholders of a policy in directory
// order. A failed lookup is an error, never an empty list.
func (r *Resolver) ResolveSecondaries(ctx context.Context, policyID id.PolicyID) ([]models.SecondaryMemberInfo, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.secondaries", trace.WithAttributes(attribute.String("policy_id", policyID.String())))
	defer span.End()

	subs, err := r.directory.ListSubPolicyholders(ctx, policyID)
	if err != nil {
		err = asLookupError(models.EntitySubPolicyholders, policyID.String(), err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out := make([]models.SecondaryMemberInfo, 0, len(subs))
	for _, sub := range subs {
		out = append(out, models.SecondaryMemberInfo{
			ID:          sub.ID,
			DisplayName: displayName(sub.DisplayName, sub.ID.String()),
			TaxID:       sub.TaxID,
		})
	}
	span.SetAttributes(attribute.Int("secondaries", len(out)))
	return out, nil
}

type resolveOptions struct {
	tolerateSecondaryFailure bool
}

type ResolveOption func(*resolveOptions)

// TolerateSecondaryFailure makes ResolveAll report zero secondaries instead of
// failing when the sub-policyholder lookup fails.
func TolerateSecondaryFailure() ResolveOption {
	return func(o *resolveOptions) {
		o.tolerateSecondaryFailure = true
	}
}

// ResolveAll resolves the primary and the secondaries concurrently. Neither
// lookup cancels the other.
func (r *Resolver) ResolveAll(ctx context.Context, policyID id.PolicyID, opts ...ResolveOption) (*models.MemberOptions, error) {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		g           errgroup.Group
		primary     models.PrimaryMemberInfo
		secondaries []models.SecondaryMemberInfo
		primaryErr  error
		secondErr   error
	)
	g.Go(func() error {
		primary, primaryErr = r.ResolvePrimary(ctx, policyID)
		return nil
	})
	g.Go(func() error {
		secondaries, secondErr = r.ResolveSecondaries(ctx, policyID)
		return nil
	})
	_ = g.Wait()

	if secondErr != nil && o.tolerateSecondaryFailure {
		r.logger.WarnContext(ctx, "sub-policyholder lookup failed, continuing without secondaries",
			"policy_id", policyID.String(),
			"error", secondErr,
		)
		secondaries, secondErr = []models.SecondaryMemberInfo{}, nil
	}
	if err := errors.Join(primaryErr, secondErr); err != nil {
		return nil, err
	}
	return &models.MemberOptions{Primary: primary, Secondaries: secondaries}, nil
}

func asLookupError(kind models.EntityKind, entityID string, err error) error {
	var lookupErr *models.LookupError
	if errors.As(err, &lookupErr) {
		return err
	}
	return models.NewLookupError(kind, entityID, err)
}

func displayName(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fallback
}
