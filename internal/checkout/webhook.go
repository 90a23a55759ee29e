package checkout

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/events"
	"github.com/familybalance/checkout-backend/internal/metrics"
	"github.com/familybalance/checkout-backend/internal/order"
	"github.com/familybalance/checkout-backend/internal/payu"
	"github.com/familybalance/checkout-backend/internal/store"
)

var (
	// ErrInvalidSignature means the notification failed verification and
	// must be answered with an error status so the gateway retries.
	ErrInvalidSignature = errors.New("invalid notification signature")
	// ErrMalformedWebhook means the body parsed but misses required fields.
	ErrMalformedWebhook = errors.New("malformed notification body")
)

// Reconciler applies gateway status notifications to the order stores.
type Reconciler struct {
	signer    *payu.Signer
	store     OrderStore
	publisher EventPublisher
	metrics   *metrics.Recorder
	logger    *zap.SugaredLogger
}

func NewReconciler(signer *payu.Signer, orderStore OrderStore,
	publisher EventPublisher, recorder *metrics.Recorder, logger *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		signer:    signer,
		store:     orderStore,
		publisher: publisher,
		metrics:   recorder,
		logger:    logger,
	}
}

// HandleNotification verifies the signature over the raw body, maps the
// gateway status and updates whichever backend holds the order.
//
// Verification runs over rawBody exactly as received; re-serializing the
// parsed JSON would change the bytes and break the digest. A notification
// that matches no stored order is acknowledged anyway: the gateway redelivers
// on errors and an order it knows but we do not will never start matching.
func (r *Reconciler) HandleNotification(ctx context.Context, rawBody []byte, signatureHeader string) error {
	digest := payu.ParseSignatureHeader(signatureHeader)
	if !r.signer.Verify(rawBody, digest) {
		r.metrics.Count(ctx, metrics.MetricWebhooksRejected)
		r.logger.Warnw("rejected notification with bad signature",
			"hasSignature", digest != "", "bodyBytes", len(rawBody))
		return ErrInvalidSignature
	}

	var notification payu.Notification
	if err := json.Unmarshal(rawBody, &notification); err != nil {
		r.metrics.Count(ctx, metrics.MetricWebhooksRejected)
		return ErrMalformedWebhook
	}
	n := notification.Order
	if n.OrderID == "" || n.Status == "" {
		r.metrics.Count(ctx, metrics.MetricWebhooksRejected)
		return ErrMalformedWebhook
	}

	status := order.MapGatewayStatus(n.Status)
	keys := store.Keys{GatewayOrderID: n.OrderID, OrderNumber: n.ExtOrderID}

	found, err := r.store.UpdateStatus(ctx, keys, status)
	if err != nil {
		return err
	}
	if !found {
		r.metrics.Count(ctx, metrics.MetricWebhooksUnmatched)
		return nil
	}

	if err := r.publisher.Publish(ctx, events.OrderEvent{
		Type:           events.TypeOrderStatusChanged,
		OrderNumber:    n.ExtOrderID,
		GatewayOrderID: n.OrderID,
		Status:         status,
	}); err != nil {
		r.logger.Warnw("failed to publish status change event",
			"payuOrderId", n.OrderID, "error", err)
	}

	r.metrics.Count(ctx, metrics.MetricWebhooksApplied)
	r.logger.Infow("notification applied",
		"payuOrderId", n.OrderID, "orderNumber", n.ExtOrderID,
		"gatewayStatus", n.Status, "status", status)
	return nil
}
