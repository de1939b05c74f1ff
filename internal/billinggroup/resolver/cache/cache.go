// Package cache is a Redis read-through cache in front of a PolicyDirectory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	id "policydesk/pkg/domain"
)

var directoryCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "policydesk_directory_cache_total",
	Help: "Policy directory cache lookups by result",
}, []string{"result"})

const (
	policyKeyPrefix = "policydesk:dir:policy:"
	subsKeyPrefix   = "policydesk:dir:subs:"

	// DefaultTTL bounds how stale cached directory data may get.
	DefaultTTL = 5 * time.Minute
)

// Directory caches GetPolicy and ListSubPolicyholders. Cache failures degrade
// to the underlying directory; they never fail a lookup.
type Directory struct {
	next   ports.PolicyDirectory
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Directory)

func WithTTL(ttl time.Duration) Option {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		d.logger = logger
	}
}

func New(next ports.PolicyDirectory, client *redis.Client, opts ...Option) *Directory {
	d := &Directory{
		next:   next,
		client: client,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Directory) GetPolicy(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	key := policyKeyPrefix + policyID.String()
	var cached models.Policy
	if d.get(ctx, key, &cached) {
		return &cached, nil
	}
	policy, err := d.next.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	d.set(ctx, key, policy)
	return policy, nil
}

func (d *Directory) ListSubPolicyholders(ctx context.Context, policyID id.PolicyID) ([]models.SubPolicyholder, error) {
	key := subsKeyPrefix + policyID.String()
	var cached []models.SubPolicyholder
	if d.get(ctx, key, &cached) {
		return cached, nil
	}
	subs, err := d.next.ListSubPolicyholders(ctx, policyID)
	if err != nil {
		return nil, err
	}
	d.set(ctx, key, subs)
	return subs, nil
}

// Invalidate drops cached entries for a policy.
func (d *Directory) Invalidate(ctx context.Context, policyID id.PolicyID) error {
	return d.client.Del(ctx, policyKeyPrefix+policyID.String(), subsKeyPrefix+policyID.String()).Err()
}

func (d *Directory) get(ctx context.Context, key string, dst any) bool {
	raw, err := d.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		directoryCacheTotal.WithLabelValues("miss").Inc()
		return false
	}
	if err != nil {
		directoryCacheTotal.WithLabelValues("error").Inc()
		d.logger.WarnContext(ctx, "directory cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		directoryCacheTotal.WithLabelValues("error").Inc()
		d.logger.WarnContext(ctx, "directory cache entry is corrupt", "key", key, "error", err)
		return false
	}
	directoryCacheTotal.WithLabelValues("hit").Inc()
	return true
}

func (d *Directory) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.client.Set(ctx, key, raw, d.ttl).Err(); err != nil {
		d.logger.WarnContext(ctx, "directory cache write failed", "key", key, "error", err)
	}
}
