// Package events publishes order lifecycle notifications to the fulfillment
// queue. Delivery is best-effort: checkout and reconciliation never fail
// because the queue does.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/familybalance/checkout-backend/internal/awsx"
	"github.com/familybalance/checkout-backend/internal/order"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message body sent to the fulfillment queue. The worker
// picks paid orders out of the stream and creates shipments for them.
type OrderEvent struct {
	Type           string       `json:"type"`
	OrderNumber    string       `json:"order_number"`
	GatewayOrderID string       `json:"gateway_order_id,omitempty"`
	Status         order.Status `json:"status,omitempty"`
	OccurredAt     time.Time    `json:"occurred_at"`
}

// Publisher wraps an SQS client and a queue URL. An empty queue URL turns
// publishing into a no-op so local setups can run without the queue.
type Publisher struct {
	client   awsx.SQSAPI
	queueURL string
	nowFunc  func() time.Time
}

func NewPublisher(client awsx.SQSAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, nowFunc: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, ev OrderEvent) error {
	if p.queueURL == "" {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = p.nowFunc().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	bodyStr := string(body)

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &bodyStr,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"type": {
				DataType:    strPtr("String"),
				StringValue: &ev.Type,
			},
			"order_number": {
				DataType:    strPtr("String"),
				StringValue: &ev.OrderNumber,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func strPtr(s string) *string { return &s }
