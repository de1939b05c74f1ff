package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports/mocks"
	id "policydesk/pkg/domain"
)

// An unreachable Redis must degrade to the underlying directory.
func TestDirectory_DegradesWhenRedisIsDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockPolicyDirectory(ctrl)

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	dir := New(next, client)
	policyID := id.PolicyID(uuid.New())
	policy := &models.Policy{ID: policyID, HolderName: "Acme Ltda"}

	next.EXPECT().GetPolicy(gomock.Any(), policyID).Return(policy, nil).Times(2)

	for range 2 {
		got, err := dir.GetPolicy(context.Background(), policyID)
		require.NoError(t, err)
		assert.Equal(t, policy, got)
	}
}

func TestWithTTL_IgnoresNonPositive(t *testing.T) {
	dir := New(nil, nil, WithTTL(0))
	assert.Equal(t, DefaultTTL, dir.ttl)

	dir = New(nil, nil, WithTTL(time.Minute))
	assert.Equal(t, time.Minute, dir.ttl)
}
