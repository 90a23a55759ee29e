package payu

// Config holds the merchant credentials and callback endpoints for one POS.
type Config struct {
	BaseURL      string
	PosID        string
	MD5Key       string
	ClientID     string
	ClientSecret string
	NotifyURL    string
	ContinueURL  string
}

// Buyer is the gateway's buyer record.
type Buyer struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Language  string `json:"language"`
}

// Product is one display line in minor currency units (grosz).
type Product struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// Order is the create-order request schema. Field order is load-bearing:
// the content signature covers the serialized bytes, so the JSON layout has
// to stay stable.
type Order struct {
	MerchantPosID string    `json:"merchantPosId"`
	CurrencyCode  string    `json:"currencyCode"`
	TotalAmount   int64     `json:"totalAmount"`
	CustomerIP    string    `json:"customerIp"`
	Description   string    `json:"description"`
	ExtOrderID    string    `json:"extOrderId"`
	Buyer         Buyer     `json:"buyer"`
	Products      []Product `json:"products"`
	NotifyURL     string    `json:"notifyUrl"`
	ContinueURL   string    `json:"continueUrl"`
	ValidityTime  int       `json:"validityTime"`
}

// CreateOrderResult is the normalized outcome of the three response shapes
// the gateway produces (redirect, JSON, HTML).
type CreateOrderResult struct {
	RedirectURL string
	OrderID     string
	Status      string
	ExtOrderID  string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type statusBody struct {
	StatusCode string `json:"statusCode"`
	StatusDesc string `json:"statusDesc,omitempty"`
}

type createOrderResponse struct {
	Status      *statusBody `json:"status,omitempty"`
	RedirectURI string      `json:"redirectUri,omitempty"`
	OrderID     string      `json:"orderId,omitempty"`
	ExtOrderID  string      `json:"extOrderId,omitempty"`
}

type errorResponse struct {
	Error            string      `json:"error,omitempty"`
	ErrorDescription string      `json:"error_description,omitempty"`
	Status           *statusBody `json:"status,omitempty"`
}

type orderStatusResponse struct {
	Orders []struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	} `json:"orders"`
}

// Notification is the webhook body the gateway POSTs on status changes.
type Notification struct {
	Order NotificationOrder `json:"order"`
}

type NotificationOrder struct {
	OrderID    string `json:"orderId"`
	ExtOrderID string `json:"extOrderId,omitempty"`
	Status     string `json:"status"`
}
