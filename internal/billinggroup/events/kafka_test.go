package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "policydesk/pkg/domain"
)

func TestNewKafkaPublisher(t *testing.T) {
	_, err := NewKafkaPublisher(nil, DefaultTopic)
	require.Error(t, err)

	// the client dials lazily, so construction succeeds without a broker
	p, err := NewKafkaPublisher([]string{"127.0.0.1:1"}, "")
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, DefaultTopic, p.topic)
}

func TestBillingGroupsReplaced_JSON(t *testing.T) {
	evt := BillingGroupsReplaced{
		PolicyID:   id.PolicyID(uuid.New()),
		Groups:     []string{"Matriz", "Filial"},
		Members:    3,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"policy_id":"`+evt.PolicyID.String()+`"`)
	assert.NotContains(t, string(raw), "request_id")
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.PublishReplaced(context.Background(), BillingGroupsReplaced{}))
}
