package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/events"
	"github.com/familybalance/checkout-backend/internal/order"
	"github.com/familybalance/checkout-backend/internal/shipping"
)

// OrderFetcher recovers the full order record for a paid order.
type OrderFetcher interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error)
}

// ShipmentCreator registers shipments with the carrier.
type ShipmentCreator interface {
	CreateShipment(ctx context.Context, in shipping.CreateShipmentInput) (shipping.Shipment, error)
}

// Processor consumes order lifecycle events and creates shipments for
// orders that reached the paid state.
type Processor struct {
	orders  OrderFetcher
	shipper ShipmentCreator
	logger  *zap.SugaredLogger
}

func NewProcessor(orders OrderFetcher, shipper ShipmentCreator, logger *zap.SugaredLogger) *Processor {
	return &Processor{orders: orders, shipper: shipper, logger: logger}
}

// Handle processes an SQS batch. A transient carrier failure fails the
// batch so the runtime redelivers it; everything else is logged and the
// message consumed, because redelivering it would not change the outcome.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec lambdaevents.SQSMessage) error {
	var msg events.OrderEvent
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		p.logger.Errorw("dropping unparseable message", "body", rec.Body, "error", err)
		return nil
	}

	if msg.Type != events.TypeOrderStatusChanged || msg.Status != order.StatusPaid {
		p.logger.Debugw("ignoring event", "type", msg.Type, "status", msg.Status,
			"orderNumber", msg.OrderNumber)
		return nil
	}

	o, err := p.fetchOrder(ctx, msg)
	if err != nil {
		return err
	}
	if o == nil {
		// Guest orders live only in the ledger and are fulfilled manually.
		p.logger.Infow("paid order has no table record, skipping auto fulfillment",
			"orderNumber", msg.OrderNumber, "gatewayOrderId", msg.GatewayOrderID)
		return nil
	}

	shipment, err := p.shipper.CreateShipment(ctx, shipping.CreateShipmentInput{
		OrderNumber: o.OrderNumber,
		Recipient: shipping.Recipient{
			FirstName: o.Customer.FirstName,
			LastName:  o.Customer.LastName,
			Email:     o.Customer.Email,
			Phone:     o.Customer.Phone,
			Address: &shipping.Address{
				Street:   o.Customer.Street,
				City:     o.Customer.City,
				PostCode: o.Customer.PostalCode,
			},
		},
		PackageDetails: shipping.PackageDetails{Size: "A"},
	})
	if err != nil {
		if errors.Is(err, shipping.ErrUnreachable) {
			return fmt.Errorf("create shipment for %s: %w", o.OrderNumber, err)
		}
		// A rejected payload will be rejected again on redelivery. The
		// carrier dedupes on the order-number reference, so a redelivered
		// paid event that already produced a shipment lands here too.
		p.logger.Errorw("carrier refused shipment, not retrying",
			"orderNumber", o.OrderNumber, "error", err)
		return nil
	}

	p.logger.Infow("shipment created for paid order",
		"orderNumber", o.OrderNumber,
		"shipmentId", shipment.ID,
		"tracking", shipment.TrackingNumber)
	return nil
}

// fetchOrder looks the order up by merchant number, falling back to the
// gateway id for notifications that never carried an extOrderId. An event
// with neither key can never be fulfilled, so it is consumed rather than
// left to redeliver forever.
func (p *Processor) fetchOrder(ctx context.Context, msg events.OrderEvent) (*order.Order, error) {
	if msg.OrderNumber != "" {
		o, err := p.orders.GetByOrderNumber(ctx, msg.OrderNumber)
		if err != nil {
			return nil, fmt.Errorf("fetch order %s: %w", msg.OrderNumber, err)
		}
		if o != nil {
			return o, nil
		}
	}
	if msg.GatewayOrderID != "" {
		o, err := p.orders.GetByGatewayOrderID(ctx, msg.GatewayOrderID)
		if err != nil {
			return nil, fmt.Errorf("fetch order by gateway id %s: %w", msg.GatewayOrderID, err)
		}
		return o, nil
	}
	if msg.OrderNumber == "" {
		p.logger.Warnw("paid event carries no correlation keys, dropping")
	}
	return nil, nil
}
