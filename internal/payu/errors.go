package payu

import (
	"errors"
	"fmt"
)

var (
	ErrMissingOrderNumber   = errors.New("order number is required")
	ErrInvalidCart          = errors.New("invalid cart data")
	ErrInvalidTotal         = errors.New("invalid order total")
	ErrInvalidProductPrice  = errors.New("invalid product price")
	ErrMissingCustomerField = errors.New("missing customer data")

	// ErrGatewayAuth means the credential exchange failed, or a refreshed
	// token was rejected again on the retry.
	ErrGatewayAuth = errors.New("gateway authorization failed")
	// ErrGatewayUnreachable wraps connection-level failures.
	ErrGatewayUnreachable = errors.New("could not connect to payment gateway")
	// ErrInvalidResponse means none of the known response shapes matched.
	ErrInvalidResponse = errors.New("invalid response structure from gateway")
)

// RejectedError carries the gateway's own description of a non-2xx,
// non-auth rejection so it can surface in logs and dev-mode responses.
type RejectedError struct {
	StatusCode  int
	Description string
}

func (e *RejectedError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("gateway rejected order: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway rejected order: %s", e.Description)
}
