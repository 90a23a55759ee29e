// Package store persists orders across two independent backends: a DynamoDB
// document table for authenticated customers and an S3-hosted CSV ledger for
// guests. The ledger doubles as the fallback when the table write fails, so
// an order is never lost, it just may land in the other backend than policy
// intended.
package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/order"
)

// Keys are the candidate correlation keys available at reconciliation time.
// The two backends index orders differently, so lookups try both.
type Keys struct {
	GatewayOrderID string // PayU's own order id, primary webhook key
	OrderNumber    string // merchant number, echoed by PayU as extOrderId
}

// Backend is the uniform capability surface of one persistence backend.
type Backend interface {
	Name() string
	Write(ctx context.Context, o *order.Order) error
	// UpdateStatus reports whether a matching record was found. A missing
	// record is not an error: webhooks may reference orders this service
	// never persisted.
	UpdateStatus(ctx context.Context, keys Keys, status order.Status) (bool, error)
}

// DualStore applies the primary/fallback write policy and the ordered
// multi-backend lookup policy.
type DualStore struct {
	primary   Backend
	secondary Backend
	logger    *zap.SugaredLogger
}

func NewDualStore(primary, secondary Backend, logger *zap.SugaredLogger) *DualStore {
	return &DualStore{primary: primary, secondary: secondary, logger: logger}
}

// Write persists the order. Authenticated orders go to the primary store,
// falling back to the secondary on failure; guest orders go straight to the
// secondary. Returns the name of the backend that accepted the write.
func (s *DualStore) Write(ctx context.Context, o *order.Order) (string, error) {
	if o.Authenticated && o.OwnerID != "" {
		if err := s.primary.Write(ctx, o); err == nil {
			return s.primary.Name(), nil
		} else {
			s.logger.Errorw("primary store write failed, falling back",
				"orderNumber", o.OrderNumber, "backend", s.primary.Name(), "error", err)
		}
	}

	if err := s.secondary.Write(ctx, o); err != nil {
		return "", err
	}
	return s.secondary.Name(), nil
}

// UpdateStatus tries each backend in order until one reports a match. A
// lookup error in one backend is logged and the next backend still gets its
// try. Returns whether any backend matched.
func (s *DualStore) UpdateStatus(ctx context.Context, keys Keys, status order.Status) (bool, error) {
	for _, backend := range []Backend{s.primary, s.secondary} {
		found, err := backend.UpdateStatus(ctx, keys, status)
		if err != nil {
			s.logger.Errorw("status update failed in backend",
				"backend", backend.Name(),
				"gatewayOrderId", keys.GatewayOrderID,
				"orderNumber", keys.OrderNumber,
				"error", err)
			continue
		}
		if found {
			return true, nil
		}
	}

	s.logger.Infow("no stored order matched notification keys",
		"gatewayOrderId", keys.GatewayOrderID, "orderNumber", keys.OrderNumber)
	return false, nil
}
