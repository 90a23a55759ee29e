package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the domain order status. Gateway status strings are mapped into
// it on webhook receipt; Polish display strings exist only at the storage
// boundary (see Localize).
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// MapGatewayStatus translates the PayU status vocabulary into the domain
// one. Unrecognized values pass through unchanged so a new gateway status
// is stored verbatim instead of being dropped.
func MapGatewayStatus(s string) Status {
	switch s {
	case "COMPLETED", "PAID":
		return StatusPaid
	case "CANCELED", "CANCELLED":
		return StatusCancelled
	case "PENDING", "WAITING_FOR_CONFIRMATION":
		return StatusPending
	case "REJECTED":
		return StatusRejected
	default:
		return Status(s)
	}
}

// Localize renders a status the way the order ledger displays it. Applied
// only when writing to a backend, never used for comparisons.
func Localize(s Status) string {
	switch s {
	case StatusPending:
		return "Oczekujące"
	case StatusPaid:
		return "Opłacone"
	case StatusCancelled:
		return "Anulowane"
	case StatusRejected:
		return "Odrzucone"
	default:
		return string(s)
	}
}

// LineItem is one cart position.
type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Customer carries the contact and address fields required for the gateway
// buyer record and for fulfillment.
type Customer struct {
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Company    string `json:"company,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Order is the central entity. It is created once at checkout and mutated
// only by webhook reconciliation (status transitions); it is never deleted.
type Order struct {
	OrderNumber    string          `json:"orderNumber"`
	PayUOrderID    string          `json:"payuOrderId"`
	Status         Status          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	Total          decimal.Decimal `json:"total"`
	Items          []LineItem      `json:"items"`
	Customer       Customer        `json:"customer"`
	ShippingMethod string          `json:"shippingMethod,omitempty"`
	Authenticated  bool            `json:"isAuthenticated"`
	OwnerID        string          `json:"ownerId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}
