package checkout

import (
	"context"
	"errors"

	"github.com/familybalance/checkout-backend/internal/events"
	"github.com/familybalance/checkout-backend/internal/order"
	"github.com/familybalance/checkout-backend/internal/payu"
	"github.com/familybalance/checkout-backend/internal/store"
)

type mockGateway struct {
	result   payu.CreateOrderResult
	err      error
	received []payu.Order
}

func (m *mockGateway) CreateOrder(_ context.Context, o payu.Order) (payu.CreateOrderResult, error) {
	m.received = append(m.received, o)
	if m.err != nil {
		return payu.CreateOrderResult{}, m.err
	}
	return m.result, nil
}

type mockStore struct {
	backend    string
	writeErr   error
	written    []*order.Order
	matched    bool
	updateErr  error
	updateKeys []store.Keys
	statuses   []order.Status
}

func (m *mockStore) Write(_ context.Context, o *order.Order) (string, error) {
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.written = append(m.written, o)
	return m.backend, nil
}

func (m *mockStore) UpdateStatus(_ context.Context, keys store.Keys, status order.Status) (bool, error) {
	m.updateKeys = append(m.updateKeys, keys)
	m.statuses = append(m.statuses, status)
	return m.matched, m.updateErr
}

type mockPublisher struct {
	err       error
	published []events.OrderEvent
}

func (m *mockPublisher) Publish(_ context.Context, ev events.OrderEvent) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, ev)
	return nil
}

var errBoom = errors.New("boom")
