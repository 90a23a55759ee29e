package httpapi

// CartItem is one storefront cart line. Price arrives as a number or a
// formatted string depending on which client version sent it.
type CartItem struct {
	Name     string `json:"name"`
	Price    any    `json:"price" validate:"required"`
	Quantity int    `json:"quantity"`
}

// CustomerPayload mirrors the storefront form field names, which are
// Polish and in some cases contain spaces.
type CustomerPayload struct {
	Email      string `json:"Email" validate:"required,email"`
	Phone      string `json:"Telefon" validate:"required"`
	FirstName  string `json:"Imie" validate:"required"`
	LastName   string `json:"Nazwisko" validate:"required"`
	Street     string `json:"Ulica"`
	PostalCode string `json:"Kod pocztowy"`
	City       string `json:"Miasto"`
	Company    string `json:"Firma"`
	Notes      string `json:"Uwagi"`
}

// OrderData is the cart half of the storefront envelope.
type OrderData struct {
	OrderNumber    string     `json:"orderNumber"`
	Cart           []CartItem `json:"cart" validate:"required,min=1,dive"`
	Total          any        `json:"total" validate:"required"`
	Subtotal       any        `json:"subtotal"`
	DiscountAmount any        `json:"discountAmount"`
	ShippingCost   any        `json:"shippingCost"`
	Shipping       string     `json:"shipping"`
}

// CreatePaymentRequest is the payload for POST /api/create-payment: the
// storefront sends order and customer as separate nested objects.
type CreatePaymentRequest struct {
	OrderData     OrderData       `json:"orderData" validate:"required"`
	Customer      CustomerPayload `json:"customerData" validate:"required"`
	Authenticated bool            `json:"isAuthenticated"`
	UserID        string          `json:"userId"`
}

// CreateShipmentRequest is the payload for POST /api/create-shipment.
type CreateShipmentRequest struct {
	OrderNumber string           `json:"orderNumber" validate:"required"`
	Recipient   ShipmentReceiver `json:"recipient" validate:"required"`
	Package     ShipmentPackage  `json:"packageDetails"`
}

type ShipmentReceiver struct {
	FirstName   string           `json:"firstName" validate:"required"`
	LastName    string           `json:"lastName" validate:"required"`
	Email       string           `json:"email" validate:"required,email"`
	Phone       string           `json:"phone" validate:"required"`
	PaczkomatID string           `json:"paczkomatId"`
	Address     *ShipmentAddress `json:"address"`
}

type ShipmentAddress struct {
	Street         string `json:"street"`
	BuildingNumber string `json:"buildingNumber"`
	City           string `json:"city"`
	PostCode       string `json:"postCode"`
}

type ShipmentPackage struct {
	Size   string  `json:"size"`
	Weight float64 `json:"weight"`
}
