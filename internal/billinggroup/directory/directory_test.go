package directory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	d := New()
	policyID := id.PolicyID(uuid.New())
	subID := id.SubPolicyholderID(uuid.New())

	t.Run("unknown entities are not found", func(t *testing.T) {
		_, err := d.GetPolicy(ctx, policyID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = d.ListSubPolicyholders(ctx, policyID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = d.ListPolicyContacts(ctx, policyID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = d.ListSubPolicyholderContacts(ctx, subID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		err = d.PutSubPolicyholder(policyID, models.SubPolicyholder{ID: subID}, nil)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("policy without sub-policyholders lists an empty slice", func(t *testing.T) {
		d.PutPolicy(models.Policy{ID: policyID, PolicyNumber: "AP-1"}, nil)
		subs, err := d.ListSubPolicyholders(ctx, policyID)
		require.NoError(t, err)
		assert.NotNil(t, subs)
		assert.Empty(t, subs)
	})

	t.Run("sub-policyholders are upserted in insertion order", func(t *testing.T) {
		other := id.SubPolicyholderID(uuid.New())
		require.NoError(t, d.PutSubPolicyholder(policyID, models.SubPolicyholder{ID: subID, DisplayName: "A"}, nil))
		require.NoError(t, d.PutSubPolicyholder(policyID, models.SubPolicyholder{ID: other, DisplayName: "B"}, nil))
		require.NoError(t, d.PutSubPolicyholder(policyID, models.SubPolicyholder{ID: subID, DisplayName: "A2"}, nil))

		subs, err := d.ListSubPolicyholders(ctx, policyID)
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, "A2", subs[0].DisplayName)
		assert.Equal(t, "B", subs[1].DisplayName)
	})

	t.Run("replacing a policy keeps its sub-policyholders", func(t *testing.T) {
		d.PutPolicy(models.Policy{ID: policyID, PolicyNumber: "AP-2"}, nil)
		subs, err := d.ListSubPolicyholders(ctx, policyID)
		require.NoError(t, err)
		assert.Len(t, subs, 2)
	})
}

func TestDemo(t *testing.T) {
	ctx := context.Background()
	d := Demo()

	policy, err := d.GetPolicy(ctx, DemoPolicyID)
	require.NoError(t, err)
	assert.Equal(t, "AP-2024-0001", policy.PolicyNumber)

	subs, err := d.ListSubPolicyholders(ctx, DemoPolicyID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	contacts, err := d.ListSubPolicyholderContacts(ctx, DemoFilialA)
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}

func TestFromFile(t *testing.T) {
	policyID := uuid.New()
	subID := uuid.New()
	seed := `{"policies":[{"id":"` + policyID.String() + `","policy_number":"AP-9","holder_name":"Beta",
		"contacts":[{"email":"fin@beta.com"}],
		"sub_policyholders":[{"id":"` + subID.String() + `","display_name":"Beta Sul","contacts":[{"email":"sul@beta.com","active":false}]}]}]}`
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	d, err := FromFile(path)
	require.NoError(t, err)
	policy, err := d.GetPolicy(context.Background(), id.PolicyID(policyID))
	require.NoError(t, err)
	assert.Equal(t, "Beta", policy.HolderName)
	contacts, err := d.ListSubPolicyholderContacts(context.Background(), id.SubPolicyholderID(subID))
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.False(t, contacts[0].IsActive())

	_, err = ReadSeed(strings.NewReader(`{"policies":[],"extra":1}`))
	assert.Error(t, err)

	err = New().Load(Seed{Policies: []SeedPolicy{{Policy: models.Policy{PolicyNumber: "no-id"}}}})
	assert.Error(t, err)
}
