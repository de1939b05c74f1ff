// Package directory is an in-memory policy and contact directory. It backs
// local runs and tests when no remote policy API is configured.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	id "policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

var (
	_ ports.PolicyDirectory  = (*Directory)(nil)
	_ ports.ContactDirectory = (*Directory)(nil)
)

type policyRecord struct {
	policy   models.Policy
	subs     []models.SubPolicyholder
	contacts []models.Contact
}

type Directory struct {
	mu          sync.RWMutex
	policies    map[id.PolicyID]*policyRecord
	subContacts map[id.SubPolicyholderID][]models.Contact
}

func New() *Directory {
	return &Directory{
		policies:    make(map[id.PolicyID]*policyRecord),
		subContacts: make(map[id.SubPolicyholderID][]models.Contact),
	}
}

// PutPolicy adds or replaces a policy and its contacts. Sub-policyholders
// already registered under the policy are kept.
func (d *Directory) PutPolicy(policy models.Policy, contacts []models.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.policies[policy.ID]
	if !ok {
		rec = &policyRecord{}
		d.policies[policy.ID] = rec
	}
	rec.policy = policy
	rec.contacts = slices.Clone(contacts)
}

// PutSubPolicyholder registers a sub-policyholder under an existing policy.
func (d *Directory) PutSubPolicyholder(policyID id.PolicyID, sub models.SubPolicyholder, contacts []models.Contact) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.policies[policyID]
	if !ok {
		return fmt.Errorf("policy %s: %w", policyID, sentinel.ErrNotFound)
	}
	i := slices.IndexFunc(rec.subs, func(s models.SubPolicyholder) bool { return s.ID == sub.ID })
	if i >= 0 {
		rec.subs[i] = sub
	} else {
		rec.subs = append(rec.subs, sub)
	}
	d.subContacts[sub.ID] = slices.Clone(contacts)
	return nil
}

func (d *Directory) GetPolicy(_ context.Context, policyID id.PolicyID) (*models.Policy, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	policy := rec.policy
	return &policy, nil
}

func (d *Directory) ListSubPolicyholders(_ context.Context, policyID id.PolicyID) ([]models.SubPolicyholder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]models.SubPolicyholder, len(rec.subs))
	copy(out, rec.subs)
	return out, nil
}

func (d *Directory) ListPolicyContacts(_ context.Context, policyID id.PolicyID) ([]models.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return slices.Clone(rec.contacts), nil
}

func (d *Directory) ListSubPolicyholderContacts(_ context.Context, subID id.SubPolicyholderID) ([]models.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contacts, ok := d.subContacts[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return slices.Clone(contacts), nil
}

// Seed is the JSON layout of a directory seed file.
type Seed struct {
	Policies []SeedPolicy `json:"policies"`
}

type SeedPolicy struct {
	models.Policy
	Contacts         []models.Contact `json:"contacts"`
	SubPolicyholders []SeedSub        `json:"sub_policyholders"`
}

type SeedSub struct {
	models.SubPolicyholder
	Contacts []models.Contact `json:"contacts"`
}

// Load adds every policy of the seed to the directory.
func (d *Directory) Load(seed Seed) error {
	for _, p := range seed.Policies {
		if p.ID.IsNil() {
			return fmt.Errorf("seed policy %q has no id", p.PolicyNumber)
		}
		d.PutPolicy(p.Policy, p.Contacts)
		for _, sub := range p.SubPolicyholders {
			if sub.ID.IsNil() {
				return fmt.Errorf("seed sub-policyholder %q of policy %s has no id", sub.DisplayName, p.ID)
			}
			if err := d.PutSubPolicyholder(p.ID, sub.SubPolicyholder, sub.Contacts); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadSeed decodes a seed document.
func ReadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("decode directory seed: %w", err)
	}
	return seed, nil
}

// FromFile builds a directory from a seed file.
func FromFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open directory seed: %w", err)
	}
	defer f.Close()
	seed, err := ReadSeed(f)
	if err != nil {
		return nil, err
	}
	d := New()
	if err := d.Load(seed); err != nil {
		return nil, err
	}
	return d, nil
}
