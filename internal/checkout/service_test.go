package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/events"
	"github.com/familybalance/checkout-backend/internal/metrics"
	"github.com/familybalance/checkout-backend/internal/order"
	"github.com/familybalance/checkout-backend/internal/payu"
)

func newTestService(gw *mockGateway, st *mockStore, pub *mockPublisher) *Service {
	logger := zap.NewNop().Sugar()
	cfg := payu.Config{
		PosID:       "145227",
		NotifyURL:   "https://api.example.com/api/payu-webhook",
		ContinueURL: "https://shop.example.com/platnosc-zakonczona",
	}
	return NewService(
		payu.NewBuilder(cfg, logger),
		gw, st, pub,
		metrics.NewRecorder(nil, "Checkout", logger),
		logger,
	)
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		OrderNumber: "ORD-2024-03-15-1710505845123-417",
		Cart: []order.LineItem{
			{Name: "Balansownik", UnitPrice: decimal.NewFromInt(100), Quantity: 2},
		},
		Total:          "195,00 PLN",
		Subtotal:       200.0,
		DiscountAmount: 20.0,
		ShippingCost:   15.0,
		Shipping:       "DPD",
		Customer: order.Customer{
			Email:     "jan@example.com",
			Phone:     "600100200",
			FirstName: "Jan",
			LastName:  "Kowalski",
			Street:    "Dluga 5",
			City:      "Krakow",
		},
		Authenticated: true,
		UserID:        "user-1",
		ClientIP:      "83.1.2.3",
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	gw := &mockGateway{result: payu.CreateOrderResult{
		RedirectURL: "https://secure.payu.com/pay/abc",
		OrderID:     "PU-1",
		Status:      "SUCCESS",
	}}
	st := &mockStore{backend: "dynamodb"}
	pub := &mockPublisher{}

	out, err := newTestService(gw, st, pub).CreateOrder(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if out.RedirectURL != "https://secure.payu.com/pay/abc" {
		t.Errorf("RedirectURL = %q", out.RedirectURL)
	}
	if out.PayUOrderID != "PU-1" || out.StoreBackend != "dynamodb" {
		t.Errorf("unexpected output %+v", out)
	}

	if len(gw.received) != 1 {
		t.Fatalf("gateway calls = %d", len(gw.received))
	}
	sent := gw.received[0]
	if sent.TotalAmount != 19500 {
		t.Errorf("TotalAmount = %d, want 19500", sent.TotalAmount)
	}
	if sent.ExtOrderID != "ORD-2024-03-15-1710505845123-417" {
		t.Errorf("ExtOrderID = %q", sent.ExtOrderID)
	}

	if len(st.written) != 1 {
		t.Fatalf("store writes = %d", len(st.written))
	}
	rec := st.written[0]
	if rec.Status != order.StatusPending {
		t.Errorf("stored status = %q, want PENDING", rec.Status)
	}
	if rec.PayUOrderID != "PU-1" {
		t.Errorf("stored PayUOrderID = %q", rec.PayUOrderID)
	}
	if !rec.Total.Equal(decimal.RequireFromString("195.00")) {
		t.Errorf("stored total = %s", rec.Total)
	}

	if len(pub.published) != 1 || pub.published[0].Type != events.TypeOrderCreated {
		t.Errorf("published events = %+v", pub.published)
	}
}

func TestCreateOrderGeneratesNumberWhenAbsent(t *testing.T) {
	gw := &mockGateway{result: payu.CreateOrderResult{OrderID: "PU-2", RedirectURL: "https://pay"}}
	st := &mockStore{backend: "sheet"}

	in := validInput()
	in.OrderNumber = ""

	out, err := newTestService(gw, st, &mockPublisher{}).CreateOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !strings.HasPrefix(out.OrderNumber, "ORD-") {
		t.Errorf("generated order number %q does not carry the ORD prefix", out.OrderNumber)
	}
	if gw.received[0].ExtOrderID != out.OrderNumber {
		t.Errorf("gateway saw %q, output says %q", gw.received[0].ExtOrderID, out.OrderNumber)
	}
}

func TestCreateOrderValidationStopsBeforeGateway(t *testing.T) {
	gw := &mockGateway{}
	st := &mockStore{}

	in := validInput()
	in.Cart = nil

	_, err := newTestService(gw, st, &mockPublisher{}).CreateOrder(context.Background(), in)
	if !errors.Is(err, payu.ErrInvalidCart) {
		t.Fatalf("expected ErrInvalidCart, got %v", err)
	}
	if len(gw.received) != 0 {
		t.Errorf("gateway was called despite invalid input")
	}
	if len(st.written) != 0 {
		t.Errorf("store was written despite invalid input")
	}
}

func TestCreateOrderMalformedTotalRejected(t *testing.T) {
	in := validInput()
	in.Total = "not a number"

	out, err := newTestService(&mockGateway{}, &mockStore{}, &mockPublisher{}).
		CreateOrder(context.Background(), in)
	if !errors.Is(err, payu.ErrInvalidTotal) {
		t.Fatalf("expected ErrInvalidTotal, got %v", err)
	}
	if out.OrderNumber == "" {
		t.Errorf("error output should still carry the order number")
	}
}

func TestCreateOrderGatewayFailureSkipsPersistence(t *testing.T) {
	gw := &mockGateway{err: errBoom}
	st := &mockStore{}

	_, err := newTestService(gw, st, &mockPublisher{}).CreateOrder(context.Background(), validInput())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if len(st.written) != 0 {
		t.Errorf("order persisted although the gateway rejected it")
	}
}

func TestCreateOrderSurvivesStoreFailure(t *testing.T) {
	gw := &mockGateway{result: payu.CreateOrderResult{OrderID: "PU-3", RedirectURL: "https://pay"}}
	st := &mockStore{writeErr: errBoom}
	pub := &mockPublisher{}

	out, err := newTestService(gw, st, pub).CreateOrder(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateOrder should not fail on a store error: %v", err)
	}
	if out.RedirectURL != "https://pay" {
		t.Errorf("RedirectURL = %q", out.RedirectURL)
	}
	if len(pub.published) != 1 {
		t.Errorf("created event not published after store failure")
	}
}
