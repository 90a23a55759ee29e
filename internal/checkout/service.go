// Package checkout orchestrates the create-payment flow: normalize
// monetary input, build and sign the gateway order, persist the local
// record and publish the lifecycle event. It also hosts the webhook
// reconciler that folds gateway notifications back into the stores.
package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/events"
	"github.com/familybalance/checkout-backend/internal/metrics"
	"github.com/familybalance/checkout-backend/internal/money"
	"github.com/familybalance/checkout-backend/internal/order"
	"github.com/familybalance/checkout-backend/internal/payu"
	"github.com/familybalance/checkout-backend/internal/store"
)

// Gateway is the slice of the PayU client the service needs.
type Gateway interface {
	CreateOrder(ctx context.Context, o payu.Order) (payu.CreateOrderResult, error)
}

// OrderStore is the dual-backend persistence surface.
type OrderStore interface {
	Write(ctx context.Context, o *order.Order) (string, error)
	UpdateStatus(ctx context.Context, keys store.Keys, status order.Status) (bool, error)
}

// EventPublisher emits order lifecycle events for the fulfillment worker.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.OrderEvent) error
}

// CreateOrderInput is the checkout request after transport-level binding.
// Monetary fields are `any` because clients send them as numbers or as
// formatted strings; money.Normalize absorbs both.
type CreateOrderInput struct {
	OrderNumber    string
	Cart           []order.LineItem
	Total          any
	Subtotal       any
	DiscountAmount any
	ShippingCost   any
	Shipping       string
	Customer       order.Customer
	Authenticated  bool
	UserID         string
	ClientIP       string
}

// CreateOrderOutput is what the HTTP layer returns to the storefront.
type CreateOrderOutput struct {
	OrderNumber  string
	RedirectURL  string
	PayUOrderID  string
	Status       string
	StoreBackend string
}

type Service struct {
	builder   *payu.Builder
	gateway   Gateway
	store     OrderStore
	publisher EventPublisher
	metrics   *metrics.Recorder
	numbers   *order.NumberGenerator
	logger    *zap.SugaredLogger
	nowFunc   func() time.Time
}

func NewService(builder *payu.Builder, gateway Gateway, orderStore OrderStore,
	publisher EventPublisher, recorder *metrics.Recorder, logger *zap.SugaredLogger) *Service {
	return &Service{
		builder:   builder,
		gateway:   gateway,
		store:     orderStore,
		publisher: publisher,
		metrics:   recorder,
		numbers:   order.NewNumberGenerator(),
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// CreateOrder runs the checkout pipeline. The gateway call happens before
// local persistence: an order the gateway refused is never written, while a
// failed local write after a successful gateway call is logged and the
// redirect still returned, because the customer is already on their way to
// the payment page.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderOutput, error) {
	orderNumber := in.OrderNumber
	if orderNumber == "" {
		orderNumber = s.numbers.Generate()
		s.logger.Infow("no order number supplied, generated one", "orderNumber", orderNumber)
	}

	total := s.normalizeAmount(orderNumber, "total", in.Total)
	subtotal := s.normalizeAmount(orderNumber, "subtotal", in.Subtotal)
	discount := s.normalizeAmount(orderNumber, "discountAmount", in.DiscountAmount)
	shippingCost := s.normalizeAmount(orderNumber, "shippingCost", in.ShippingCost)

	details := payu.OrderDetails{
		OrderNumber:    orderNumber,
		Cart:           in.Cart,
		Total:          total,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Shipping:       in.Shipping,
	}

	payuOrder, err := s.builder.Build(details, in.Customer, in.ClientIP)
	if err != nil {
		s.metrics.Count(ctx, metrics.MetricOrdersFailed)
		return CreateOrderOutput{OrderNumber: orderNumber}, err
	}

	result, err := s.gateway.CreateOrder(ctx, payuOrder)
	if err != nil {
		s.metrics.Count(ctx, metrics.MetricOrdersFailed)
		return CreateOrderOutput{OrderNumber: orderNumber}, err
	}

	now := s.nowFunc().UTC()
	record := &order.Order{
		OrderNumber:    orderNumber,
		PayUOrderID:    result.OrderID,
		Status:         order.StatusPending,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingCost:   shippingCost,
		Total:          total,
		Items:          in.Cart,
		Customer:       in.Customer,
		ShippingMethod: in.Shipping,
		Authenticated:  in.Authenticated,
		OwnerID:        in.UserID,
		CreatedAt:      now,
		LastUpdated:    now,
	}

	backend, err := s.store.Write(ctx, record)
	if err != nil {
		// The gateway already accepted the order; losing the local record
		// is recoverable via the ledger export, losing the redirect is not.
		s.logger.Errorw("failed to persist order after gateway accepted it",
			"orderNumber", orderNumber, "payuOrderId", result.OrderID, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.OrderEvent{
		Type:           events.TypeOrderCreated,
		OrderNumber:    orderNumber,
		GatewayOrderID: result.OrderID,
		Status:         order.StatusPending,
	}); err != nil {
		s.logger.Warnw("failed to publish order created event",
			"orderNumber", orderNumber, "error", err)
	}

	s.metrics.Count(ctx, metrics.MetricOrdersCreated)
	s.logger.Infow("order created",
		"orderNumber", orderNumber,
		"payuOrderId", result.OrderID,
		"backend", backend,
		"status", result.Status,
	)

	return CreateOrderOutput{
		OrderNumber:  orderNumber,
		RedirectURL:  result.RedirectURL,
		PayUOrderID:  result.OrderID,
		Status:       result.Status,
		StoreBackend: backend,
	}, nil
}

// normalizeAmount coerces one monetary field, logging and continuing with
// zero when it is malformed. The zero then trips total validation in the
// builder for the one field where zero is not acceptable.
func (s *Service) normalizeAmount(orderNumber, field string, v any) (d decimal.Decimal) {
	d, err := money.Normalize(v)
	if err != nil {
		s.logger.Warnw("malformed monetary value, treating as zero",
			"orderNumber", orderNumber, "field", field, "error", err)
	}
	return d
}
