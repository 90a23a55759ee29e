package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/events"
	"github.com/familybalance/checkout-backend/internal/metrics"
	"github.com/familybalance/checkout-backend/internal/order"
	"github.com/familybalance/checkout-backend/internal/payu"
)

const webhookKey = "test-md5-key"

func newTestReconciler(st *mockStore, pub *mockPublisher) *Reconciler {
	logger := zap.NewNop().Sugar()
	return NewReconciler(
		payu.NewSigner(webhookKey),
		st, pub,
		metrics.NewRecorder(nil, "Checkout", logger),
		logger,
	)
}

func signedHeader(body []byte) string {
	digest := payu.NewSigner(webhookKey).Sign(body)
	return fmt.Sprintf("signature=%s;algorithm=MD5", digest)
}

func notificationBody(orderID, extOrderID, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"order":{"orderId":%q,"extOrderId":%q,"status":%q}}`,
		orderID, extOrderID, status))
}

func TestHandleNotificationApplied(t *testing.T) {
	st := &mockStore{matched: true}
	pub := &mockPublisher{}
	body := notificationBody("PU-1", "ORD-1", "COMPLETED")

	err := newTestReconciler(st, pub).HandleNotification(context.Background(), body, signedHeader(body))
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	if len(st.updateKeys) != 1 {
		t.Fatalf("store updates = %d", len(st.updateKeys))
	}
	if st.updateKeys[0].GatewayOrderID != "PU-1" || st.updateKeys[0].OrderNumber != "ORD-1" {
		t.Errorf("keys = %+v", st.updateKeys[0])
	}
	if st.statuses[0] != order.StatusPaid {
		t.Errorf("status = %q, want PAID", st.statuses[0])
	}

	if len(pub.published) != 1 {
		t.Fatalf("events = %d", len(pub.published))
	}
	ev := pub.published[0]
	if ev.Type != events.TypeOrderStatusChanged || ev.Status != order.StatusPaid {
		t.Errorf("event = %+v", ev)
	}
}

func TestHandleNotificationBadSignature(t *testing.T) {
	st := &mockStore{matched: true}
	body := notificationBody("PU-1", "ORD-1", "COMPLETED")

	err := newTestReconciler(st, &mockPublisher{}).
		HandleNotification(context.Background(), body, "signature=deadbeef;algorithm=MD5")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if len(st.updateKeys) != 0 {
		t.Errorf("store was touched despite bad signature")
	}
}

func TestHandleNotificationMissingSignatureHeader(t *testing.T) {
	st := &mockStore{matched: true}
	body := notificationBody("PU-1", "ORD-1", "COMPLETED")

	err := newTestReconciler(st, &mockPublisher{}).HandleNotification(context.Background(), body, "")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

// The signature covers the exact bytes received; a semantically identical
// body with different whitespace must fail.
func TestHandleNotificationSignatureOverRawBytes(t *testing.T) {
	st := &mockStore{matched: true}
	body := notificationBody("PU-1", "ORD-1", "COMPLETED")
	reformatted := []byte(`{ "order": { "orderId": "PU-1", "extOrderId": "ORD-1", "status": "COMPLETED" } }`)

	err := newTestReconciler(st, &mockPublisher{}).
		HandleNotification(context.Background(), reformatted, signedHeader(body))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestHandleNotificationMalformed(t *testing.T) {
	cases := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("plainly not json")},
		{"missing order id", notificationBody("", "ORD-1", "COMPLETED")},
		{"missing status", notificationBody("PU-1", "ORD-1", "")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &mockStore{matched: true}
			err := newTestReconciler(st, &mockPublisher{}).
				HandleNotification(context.Background(), tc.body, signedHeader(tc.body))
			if !errors.Is(err, ErrMalformedWebhook) {
				t.Fatalf("expected ErrMalformedWebhook, got %v", err)
			}
			if len(st.updateKeys) != 0 {
				t.Errorf("store was touched despite malformed body")
			}
		})
	}
}

func TestHandleNotificationUnmatchedIsAcknowledged(t *testing.T) {
	st := &mockStore{matched: false}
	pub := &mockPublisher{}
	body := notificationBody("PU-unknown", "", "CANCELED")

	err := newTestReconciler(st, pub).HandleNotification(context.Background(), body, signedHeader(body))
	if err != nil {
		t.Fatalf("unmatched notification must be acknowledged, got %v", err)
	}
	if len(st.updateKeys) != 1 {
		t.Errorf("lookup did not run")
	}
	if len(pub.published) != 0 {
		t.Errorf("no event should be published for an unmatched notification")
	}
}

func TestHandleNotificationStatusMapping(t *testing.T) {
	cases := map[string]order.Status{
		"COMPLETED":                order.StatusPaid,
		"CANCELED":                 order.StatusCancelled,
		"WAITING_FOR_CONFIRMATION": order.StatusPending,
		"REJECTED":                 order.StatusRejected,
		"SOMETHING_NEW":            order.Status("SOMETHING_NEW"),
	}
	for gatewayStatus, want := range cases {
		st := &mockStore{matched: true}
		body := notificationBody("PU-1", "ORD-1", gatewayStatus)

		if err := newTestReconciler(st, &mockPublisher{}).
			HandleNotification(context.Background(), body, signedHeader(body)); err != nil {
			t.Fatalf("%s: %v", gatewayStatus, err)
		}
		if st.statuses[0] != want {
			t.Errorf("%s mapped to %q, want %q", gatewayStatus, st.statuses[0], want)
		}
	}
}
