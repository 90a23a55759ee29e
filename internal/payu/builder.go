package payu

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/money"
	"github.com/familybalance/checkout-backend/internal/order"
)

// Shipping is billed as a fixed-price display line, same as the ledger's
// "Koszt dostawy" column.
const (
	shippingLineName  = "Shipping - DPD"
	shippingUnitPrice = 1500 // grosz
	orderValidity     = 3600 // seconds
)

// OrderDetails is the normalized cart-side input to the builder.
type OrderDetails struct {
	OrderNumber    string
	Cart           []order.LineItem
	Total          decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Shipping       string
}

// Builder turns validated cart and customer data into the gateway order
// schema.
type Builder struct {
	cfg    Config
	logger *zap.SugaredLogger
}

func NewBuilder(cfg Config, logger *zap.SugaredLogger) *Builder {
	return &Builder{cfg: cfg, logger: logger}
}

// Build validates its inputs fail-fast and assembles the gateway order.
//
// The charged totalAmount is the caller-supplied, already-discounted total,
// while the products array lists undiscounted line items for gateway
// display. When a discount applies the two legitimately differ; the builder
// preserves that divergence and only logs when the gap is not explained by
// the declared discount and shipping.
func (b *Builder) Build(details OrderDetails, customer order.Customer, clientIP string) (Order, error) {
	if details.OrderNumber == "" {
		return Order{}, ErrMissingOrderNumber
	}
	if len(details.Cart) == 0 {
		return Order{}, ErrInvalidCart
	}

	total := money.ToMinorUnits(details.Total)
	if total <= 0 {
		return Order{}, ErrInvalidTotal
	}

	if missing := missingCustomerFields(customer); len(missing) > 0 {
		return Order{}, fmt.Errorf("%w: %s", ErrMissingCustomerField, strings.Join(missing, ", "))
	}

	products := make([]Product, 0, len(details.Cart)+1)
	for _, item := range details.Cart {
		p, err := buildProduct(item)
		if err != nil {
			return Order{}, err
		}
		products = append(products, p)
	}

	shippingCharged := int64(0)
	if details.Shipping != "" {
		products = append(products, Product{
			Name:      shippingLineName,
			UnitPrice: shippingUnitPrice,
			Quantity:  1,
		})
		shippingCharged = shippingUnitPrice
	}

	var lineSum int64
	for _, p := range products {
		lineSum += p.UnitPrice * int64(p.Quantity)
	}
	discount := money.ToMinorUnits(details.DiscountAmount)
	if diff := lineSum - discount - total; diff > 1 || diff < -1 {
		b.logger.Warnw("order total diverges from line items beyond declared discount",
			"orderNumber", details.OrderNumber,
			"totalAmount", total,
			"lineSum", lineSum,
			"discount", discount,
			"shipping", shippingCharged,
		)
	}

	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	return Order{
		MerchantPosID: b.cfg.PosID,
		CurrencyCode:  "PLN",
		TotalAmount:   total,
		CustomerIP:    clientIP,
		Description:   "Order " + details.OrderNumber,
		ExtOrderID:    details.OrderNumber,
		Buyer: Buyer{
			Email:     customer.Email,
			Phone:     customer.Phone,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
			Language:  "pl",
		},
		Products:     products,
		NotifyURL:    b.cfg.NotifyURL,
		ContinueURL:  b.cfg.ContinueURL,
		ValidityTime: orderValidity,
	}, nil
}

func buildProduct(item order.LineItem) (Product, error) {
	price := money.ToMinorUnits(item.UnitPrice)
	if price <= 0 {
		return Product{}, fmt.Errorf("%w: %s", ErrInvalidProductPrice, item.Name)
	}

	quantity := item.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return Product{}, fmt.Errorf("%w: invalid quantity for %s", ErrInvalidCart, item.Name)
	}

	name := item.Name
	if name == "" {
		name = "Product"
	}
	return Product{Name: name, UnitPrice: price, Quantity: quantity}, nil
}

// missingCustomerFields reports absent required fields under the names the
// storefront form uses, so the client can correlate the complaint.
func missingCustomerFields(c order.Customer) []string {
	var missing []string
	if c.Email == "" {
		missing = append(missing, "Email")
	}
	if c.Phone == "" {
		missing = append(missing, "Telefon")
	}
	if c.FirstName == "" {
		missing = append(missing, "Imie")
	}
	if c.LastName == "" {
		missing = append(missing, "Nazwisko")
	}
	return missing
}
