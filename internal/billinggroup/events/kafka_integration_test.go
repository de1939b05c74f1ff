//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"policydesk/internal/billinggroup/events"
	id "policydesk/pkg/domain"
	"policydesk/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaPublisherSuite) TestPublishReplaced() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "billing-groups-" + uuid.NewString()
	publisher, err := events.NewKafkaPublisher(s.brokers, topic)
	s.Require().NoError(err)
	defer publisher.Close()
	s.Require().NoError(publisher.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(publisher.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	evt := events.BillingGroupsReplaced{
		PolicyID:   id.PolicyID(uuid.New()),
		Groups:     []string{"Matriz"},
		Members:    2,
		OccurredAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	s.Require().NoError(publisher.PublishReplaced(ctx, evt))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(evt.PolicyID.String(), string(records[0].Key))

	var got events.BillingGroupsReplaced
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(evt.PolicyID, got.PolicyID)
	s.Equal(evt.Groups, got.Groups)
	s.True(evt.OccurredAt.Equal(got.OccurredAt))
}
