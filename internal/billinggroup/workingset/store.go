// Package workingset holds the per-policy working copies of billing group
// membership that editors mutate locally before they are persisted.
//
// Each working copy carries a version that increases with every local edit.
// Reconciliation with the canonical set only replaces the copy when no newer
// edit happened in the meantime.
package workingset

import (
	"sync"
	"time"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

// Snapshot is an immutable copy of a working set at a version.
type Snapshot struct {
	PolicyID id.PolicyID
	Version  uint64
	Members  []models.Member
}

// Status describes how far a working copy is from the stored set.
type Status struct {
	Version          uint64    `json:"version"`
	PersistedVersion uint64    `json:"persisted_version"`
	Pending          bool      `json:"pending"`
	LastError        string    `json:"last_error,omitempty"`
	LastSyncedAt     time.Time `json:"last_synced_at,omitzero"`
}

type entry struct {
	members          []models.Member
	version          uint64
	persistedVersion uint64
	lastErr          error
	lastSyncedAt     time.Time
	touchedAt        time.Time
}

func (e *entry) clean() bool {
	return e.version == e.persistedVersion
}

// Store is safe for concurrent use. Locks are only held for in-memory work.
type Store struct {
	mu   sync.RWMutex
	sets map[id.PolicyID]*entry
	now  func() time.Time
}

type Option func(*Store)

// WithClock sets the clock used to track when a copy was last used.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{sets: make(map[id.PolicyID]*entry), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load installs the canonical set for a policy as a clean working copy. It is
// a no-op when a copy is already open, so concurrent openers do not clobber
// local edits. It reports whether the copy was installed.
func (s *Store) Load(policyID id.PolicyID, members []models.Member, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[policyID]; ok {
		return false
	}
	s.sets[policyID] = &entry{members: models.CloneMembers(members), lastSyncedAt: at, touchedAt: s.now()}
	return true
}

// Touch marks a copy as in use so idle eviction leaves it alone.
func (s *Store) Touch(policyID id.PolicyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sets[policyID]; ok {
		e.touchedAt = s.now()
	}
}

func (s *Store) Has(policyID id.PolicyID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[policyID]
	return ok
}

// Len returns the number of open working copies.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

// Snapshot returns a deep copy of the current working set.
func (s *Store) Snapshot(policyID id.PolicyID) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sets[policyID]
	if !ok {
		return Snapshot{}, sentinel.ErrNotFound
	}
	return Snapshot{PolicyID: policyID, Version: e.version, Members: models.CloneMembers(e.members)}, nil
}

// Mutate replaces the working set with fn's result and bumps the version. When
// fn fails the set is left untouched. fn must not block.
func (s *Store) Mutate(policyID id.PolicyID, fn func(current []models.Member) ([]models.Member, error)) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sets[policyID]
	if !ok {
		return Snapshot{}, sentinel.ErrNotFound
	}
	next, err := fn(models.CloneMembers(e.members))
	if err != nil {
		return Snapshot{}, err
	}
	e.members = next
	e.version++
	e.touchedAt = s.now()
	return Snapshot{PolicyID: policyID, Version: e.version, Members: models.CloneMembers(next)}, nil
}

// Reconcile records a successful persist of version basedOn. The canonical set
// replaces the working copy only when the copy is still at that version; a
// newer local edit wins and stays pending. Canonical rows for the same group
// and member as a local row keep the local row id, so ids handed out earlier in
// the session stay valid. It reports whether the copy was replaced.
func (s *Store) Reconcile(policyID id.PolicyID, basedOn uint64, canonical []models.Member, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sets[policyID]
	if !ok {
		return false
	}
	if basedOn > e.persistedVersion {
		e.persistedVersion = basedOn
	}
	e.lastErr = nil
	e.lastSyncedAt = at
	if e.version != basedOn {
		return false
	}
	e.members = keepRowIDs(e.members, canonical)
	return true
}

type rowKey struct {
	group string
	ref   models.MemberRef
}

func keepRowIDs(local, canonical []models.Member) []models.Member {
	ids := make(map[rowKey]id.MemberID, len(local))
	for _, m := range local {
		ids[rowKey{m.GroupName, m.Ref}] = m.ID
	}
	out := models.CloneMembers(canonical)
	for i := range out {
		if rowID, ok := ids[rowKey{out[i].GroupName, out[i].Ref}]; ok && !rowID.IsNil() {
			out[i].ID = rowID
		}
	}
	return out
}

// MarkPersisted records that version was stored without replacing the copy.
func (s *Store) MarkPersisted(policyID id.PolicyID, version uint64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sets[policyID]; ok {
		if version > e.persistedVersion {
			e.persistedVersion = version
		}
		e.lastSyncedAt = at
	}
}

// MarkFailed records a failed persist. The working copy is kept as is.
func (s *Store) MarkFailed(policyID id.PolicyID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sets[policyID]; ok {
		e.lastErr = err
	}
}

// Status reports the sync state of a working copy.
func (s *Store) Status(policyID id.PolicyID) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sets[policyID]
	if !ok {
		return Status{}, sentinel.ErrNotFound
	}
	st := Status{
		Version:          e.version,
		PersistedVersion: e.persistedVersion,
		Pending:          e.version != e.persistedVersion,
		LastSyncedAt:     e.lastSyncedAt,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st, nil
}

// Dirty reports whether the copy has edits that were never persisted.
func (s *Store) Dirty(policyID id.PolicyID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sets[policyID]
	return ok && !e.clean()
}

// Drop closes a working copy that has no unsaved edits. It reports false when
// the copy still has edits to persist; a missing copy counts as dropped.
func (s *Store) Drop(policyID id.PolicyID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sets[policyID]
	if !ok {
		return true
	}
	if !e.clean() {
		return false
	}
	delete(s.sets, policyID)
	return true
}

// EvictIdle closes every clean copy not used since cutoff and returns the
// evicted policies. Copies with unsaved edits are kept.
func (s *Store) EvictIdle(cutoff time.Time) []id.PolicyID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []id.PolicyID
	for policyID, e := range s.sets {
		if e.clean() && e.touchedAt.Before(cutoff) {
			delete(s.sets, policyID)
			evicted = append(evicted, policyID)
		}
	}
	return evicted
}
