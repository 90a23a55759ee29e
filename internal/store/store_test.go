package store

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/order"
)

// stubBackend records calls; used to test DualStore policy in isolation.
type stubBackend struct {
	name        string
	writeErr    error
	updateFound bool
	updateErr   error
	writes      int
	updates     int
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Write(ctx context.Context, o *order.Order) error {
	b.writes++
	return b.writeErr
}

func (b *stubBackend) UpdateStatus(ctx context.Context, keys Keys, status order.Status) (bool, error) {
	b.updates++
	return b.updateFound, b.updateErr
}

func newDual(primary, secondary *stubBackend) *DualStore {
	return NewDualStore(primary, secondary, zap.NewNop().Sugar())
}

func TestDualStore_AuthenticatedWritesPrimary(t *testing.T) {
	primary := &stubBackend{name: "dynamodb"}
	secondary := &stubBackend{name: "sheet"}
	s := newDual(primary, secondary)

	backend, err := s.Write(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend != "dynamodb" {
		t.Fatalf("accepted backend = %q, want dynamodb", backend)
	}
	if primary.writes != 1 || secondary.writes != 0 {
		t.Fatalf("writes: primary=%d secondary=%d", primary.writes, secondary.writes)
	}
}

func TestDualStore_GuestWritesSecondaryDirectly(t *testing.T) {
	primary := &stubBackend{name: "dynamodb"}
	secondary := &stubBackend{name: "sheet"}
	s := newDual(primary, secondary)

	o := testOrder()
	o.Authenticated = false
	o.OwnerID = ""

	backend, err := s.Write(context.Background(), o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend != "sheet" {
		t.Fatalf("accepted backend = %q, want sheet", backend)
	}
	if primary.writes != 0 || secondary.writes != 1 {
		t.Fatalf("writes: primary=%d secondary=%d", primary.writes, secondary.writes)
	}
}

func TestDualStore_PrimaryFailureFallsBackExactlyOnce(t *testing.T) {
	primary := &stubBackend{name: "dynamodb", writeErr: errors.New("table throttled")}
	secondary := &stubBackend{name: "sheet"}
	s := newDual(primary, secondary)

	backend, err := s.Write(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend != "sheet" {
		t.Fatalf("accepted backend = %q, want sheet fallback", backend)
	}
	if primary.writes != 1 || secondary.writes != 1 {
		t.Fatalf("writes: primary=%d secondary=%d, want exactly one each",
			primary.writes, secondary.writes)
	}
}

func TestDualStore_BothBackendsFailing(t *testing.T) {
	primary := &stubBackend{name: "dynamodb", writeErr: errors.New("down")}
	secondary := &stubBackend{name: "sheet", writeErr: errors.New("also down")}
	s := newDual(primary, secondary)

	if _, err := s.Write(context.Background(), testOrder()); err == nil {
		t.Fatal("expected error when both backends fail")
	}
}

func TestDualStore_UpdateStopsAtFirstMatch(t *testing.T) {
	primary := &stubBackend{name: "dynamodb", updateFound: true}
	secondary := &stubBackend{name: "sheet"}
	s := newDual(primary, secondary)

	found, err := s.UpdateStatus(context.Background(), Keys{OrderNumber: "ORD-1"}, order.StatusPaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected match")
	}
	if secondary.updates != 0 {
		t.Fatal("secondary should not be consulted after a primary match")
	}
}

func TestDualStore_UpdateContinuesPastBackendError(t *testing.T) {
	primary := &stubBackend{name: "dynamodb", updateErr: errors.New("query failed")}
	secondary := &stubBackend{name: "sheet", updateFound: true}
	s := newDual(primary, secondary)

	found, err := s.UpdateStatus(context.Background(), Keys{GatewayOrderID: "PU-1"}, order.StatusPaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected secondary match despite primary error")
	}
}

func TestDualStore_UpdateNoMatchIsNotAnError(t *testing.T) {
	primary := &stubBackend{name: "dynamodb"}
	secondary := &stubBackend{name: "sheet"}
	s := newDual(primary, secondary)

	found, err := s.UpdateStatus(context.Background(), Keys{GatewayOrderID: "PU-ghost"}, order.StatusPaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected no match")
	}
}
