// Package synchronizer persists billing group working copies to the storage
// collaborator by full replacement and reconciles them with the canonical set.
//
// Persists are debounced per policy: every Schedule restarts the policy's
// timer, and when it fires the latest working copy is sent, not the one that
// existed when the edit was scheduled. At most one persist per policy is in
// flight; a request arriving meanwhile is coalesced into one more run.
//
// With an idle TTL the synchronizer also closes working copies that have no
// unsaved edits and were not used for that long, so the next read reloads them
// from storage.
package synchronizer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"policydesk/internal/billinggroup/metrics"
	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	"policydesk/internal/billinggroup/workingset"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/sentinel"
)

const (
	DefaultDebounce = 400 * time.Millisecond
	DefaultTimeout  = 10 * time.Second
)

type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

type run struct {
	again bool
	done  chan struct{}
	err   error
}

// Synchronizer owns the persist lifecycle of every open working copy.
type Synchronizer struct {
	backend  ports.GroupBackend
	sets     *workingset.Store
	debounce time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
	idleTTL  time.Duration

	baseCtx     context.Context
	cancel      context.CancelFunc
	janitorDone chan struct{}

	mu      sync.Mutex
	gen     uint64
	pending map[id.PolicyID]pendingTimer
	running map[id.PolicyID]*run
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Synchronizer)

func WithDebounce(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithTimeout bounds one persist, replace and re-fetch together.
func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

// WithIdleTTL enables eviction of clean working copies unused for d.
func WithIdleTTL(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
	}
}

func New(backend ports.GroupBackend, sets *workingset.Store, opts ...Option) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		backend:  backend,
		sets:     sets,
		debounce: DefaultDebounce,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		tracer:   otel.Tracer("policydesk/billinggroup/synchronizer"),
		now:      time.Now,
		baseCtx:  ctx,
		cancel:   cancel,
		pending:  make(map[id.PolicyID]pendingTimer),
		running:  make(map[id.PolicyID]*run),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.idleTTL > 0 {
		s.janitorDone = make(chan struct{})
		go s.janitor()
	}
	return s
}

func (s *Synchronizer) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(max(s.idleTTL/2, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}

// EvictIdle closes the clean working copies not used within the idle TTL and
// returns how many were closed. It is a no-op without an idle TTL.
func (s *Synchronizer) EvictIdle() int {
	if s.idleTTL <= 0 {
		return 0
	}
	evicted := s.sets.EvictIdle(s.now().Add(-s.idleTTL))
	if len(evicted) == 0 {
		return 0
	}
	s.metrics.SetWorkingSets(s.sets.Len())
	for _, policyID := range evicted {
		s.logger.Debug("idle billing group working copy evicted", "policy_id", policyID.String())
	}
	return len(evicted)
}

// Persist replaces the stored set for a policy with members and reads the
// canonical set back. Failures are *models.PersistError values.
func (s *Synchronizer) Persist(ctx context.Context, policyID id.PolicyID, members []models.Member) ([]models.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "synchronizer.persist", trace.WithAttributes(
		attribute.String("policy_id", policyID.String()),
		attribute.Int("members", len(members)),
	))
	defer span.End()

	if err := s.backend.ReplaceBillingGroups(ctx, policyID, members); err != nil {
		pe := classify(ctx, policyID, err)
		span.SetStatus(codes.Error, pe.Error())
		return nil, pe
	}
	canonical, err := s.backend.ListBillingGroups(ctx, policyID)
	if err != nil {
		pe := classify(ctx, policyID, err)
		if pe.Kind != models.PersistTimeout {
			pe.Kind = models.PersistReconcile
		}
		span.SetStatus(codes.Error, pe.Error())
		return nil, pe
	}
	return canonical, nil
}

// Schedule (re)starts the debounce timer of a policy.
func (s *Synchronizer) Schedule(policyID id.PolicyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if p, ok := s.pending[policyID]; ok {
		p.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending[policyID] = pendingTimer{
		gen:   gen,
		timer: time.AfterFunc(s.debounce, func() { s.fire(policyID, gen) }),
	}
}

// Pending reports whether a debounced persist is waiting for its timer.
func (s *Synchronizer) Pending(policyID id.PolicyID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[policyID]
	return ok
}

func (s *Synchronizer) fire(policyID id.PolicyID, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[policyID]
	if !ok || p.gen != gen || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, policyID)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	// errors are recorded on the working copy and logged by syncOnce
	_ = s.Sync(s.baseCtx, policyID)
}

// Flush cancels the pending timer of a policy and persists immediately.
func (s *Synchronizer) Flush(ctx context.Context, policyID id.PolicyID) error {
	s.mu.Lock()
	if p, ok := s.pending[policyID]; ok {
		p.timer.Stop()
		delete(s.pending, policyID)
	}
	s.mu.Unlock()
	return s.Sync(ctx, policyID)
}

// Sync persists the latest working copy of a policy if it has unsaved edits.
// When a persist for the policy is already running, the caller waits for it
// and one more run picks up the latest copy.
func (s *Synchronizer) Sync(ctx context.Context, policyID id.PolicyID) error {
	s.mu.Lock()
	if r, ok := s.running[policyID]; ok {
		r.again = true
		s.mu.Unlock()
		select {
		case <-r.done:
			return r.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r := &run{done: make(chan struct{})}
	s.running[policyID] = r
	s.mu.Unlock()

	for {
		err := s.syncOnce(ctx, policyID)
		s.mu.Lock()
		if !r.again {
			delete(s.running, policyID)
			r.err = err
			close(r.done)
			s.mu.Unlock()
			return err
		}
		r.again = false
		s.mu.Unlock()
	}
}

func (s *Synchronizer) syncOnce(ctx context.Context, policyID id.PolicyID) error {
	if !s.sets.Dirty(policyID) {
		return nil
	}
	snap, err := s.sets.Snapshot(policyID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	start := s.now()
	canonical, err := s.Persist(ctx, policyID, snap.Members)
	s.metrics.ObservePersist(s.now().Sub(start), err)
	if err != nil {
		var pe *models.PersistError
		if errors.As(err, &pe) && pe.Kind == models.PersistReconcile {
			s.sets.MarkPersisted(policyID, snap.Version, s.now())
		}
		s.sets.MarkFailed(policyID, err)
		s.logger.ErrorContext(ctx, "billing group persist failed",
			"policy_id", policyID.String(),
			"version", snap.Version,
			"error", err,
		)
		return err
	}

	replaced := s.sets.Reconcile(policyID, snap.Version, canonical, s.now())
	s.logger.DebugContext(ctx, "billing groups persisted",
		"policy_id", policyID.String(),
		"version", snap.Version,
		"members", len(canonical),
		"reconciled", replaced,
	)
	return nil
}

// Close stops accepting schedules, flushes every pending persist and waits for
// in-flight timer runs.
func (s *Synchronizer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	policies := make([]id.PolicyID, 0, len(s.pending))
	for policyID, p := range s.pending {
		p.timer.Stop()
		policies = append(policies, policyID)
	}
	clear(s.pending)
	s.mu.Unlock()

	var errs []error
	for _, policyID := range policies {
		if err := s.Sync(ctx, policyID); err != nil {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	s.cancel()
	if s.janitorDone != nil {
		<-s.janitorDone
	}
	return errors.Join(errs...)
}

func classify(ctx context.Context, policyID id.PolicyID, err error) *models.PersistError {
	var pe *models.PersistError
	if errors.As(err, &pe) {
		return pe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.NewPersistError(models.PersistTimeout, policyID, err)
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation),
		dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeBadRequest):
		return models.NewPersistError(models.PersistRejected, policyID, err)
	case errors.Is(err, sentinel.ErrUnavailable):
		return models.NewPersistError(models.PersistNetwork, policyID, err)
	default:
		return models.NewPersistError(models.PersistServer, policyID, err)
	}
}
