// Package metrics emits checkout and webhook outcome counters to
// CloudWatch. Emission is fire-and-forget; a metrics failure never affects
// the request it describes.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/awsx"
)

const (
	MetricOrdersCreated     = "OrdersCreated"
	MetricOrdersFailed      = "OrdersFailed"
	MetricWebhooksApplied   = "WebhooksApplied"
	MetricWebhooksRejected  = "WebhooksRejected"
	MetricWebhooksUnmatched = "WebhooksUnmatched"
)

type Recorder struct {
	client    awsx.CloudWatchAPI
	namespace string
	logger    *zap.SugaredLogger
	nowFunc   func() time.Time
}

func NewRecorder(client awsx.CloudWatchAPI, namespace string, logger *zap.SugaredLogger) *Recorder {
	return &Recorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Count bumps a counter metric by one.
func (r *Recorder) Count(ctx context.Context, name string) {
	if r.client == nil {
		return
	}
	now := r.nowFunc()
	one := 1.0
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &r.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Value:      &one,
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  &now,
			},
		},
	})
	if err != nil {
		r.logger.Warnw("failed to emit metric", "metric", name, "error", err)
	}
}
