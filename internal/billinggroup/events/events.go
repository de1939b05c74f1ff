// Package events publishes billing group change notifications.
package events

import (
	"context"
	"time"

	id "policydesk/pkg/domain"
)

// TypeReplaced is the event type header of BillingGroupsReplaced records.
const TypeReplaced = "billing_groups.replaced"

// BillingGroupsReplaced is emitted after the stored set of a policy was fully
// replaced.
type BillingGroupsReplaced struct {
	PolicyID   id.PolicyID `json:"policy_id"`
	Groups     []string    `json:"groups"`
	Members    int         `json:"members"`
	RequestID  string      `json:"request_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReplaced(context.Context, BillingGroupsReplaced) error { return nil }

func (NopPublisher) Close() {}
