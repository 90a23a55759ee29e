package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/familybalance/checkout-backend/internal/checkout"
	"github.com/familybalance/checkout-backend/internal/money"
	"github.com/familybalance/checkout-backend/internal/order"
	"github.com/familybalance/checkout-backend/internal/payu"
	"github.com/familybalance/checkout-backend/internal/shipping"
)

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) createPayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := bindAndValidate(c, &req, s.validate); err != nil {
		return
	}

	od := req.OrderData
	in := checkout.CreateOrderInput{
		OrderNumber:    od.OrderNumber,
		Cart:           s.toLineItems(od.OrderNumber, od.Cart),
		Total:          od.Total,
		Subtotal:       od.Subtotal,
		DiscountAmount: od.DiscountAmount,
		ShippingCost:   od.ShippingCost,
		Shipping:       od.Shipping,
		Customer: order.Customer{
			Email:      req.Customer.Email,
			Phone:      req.Customer.Phone,
			FirstName:  req.Customer.FirstName,
			LastName:   req.Customer.LastName,
			Street:     req.Customer.Street,
			PostalCode: req.Customer.PostalCode,
			City:       req.Customer.City,
			Company:    req.Customer.Company,
			Notes:      req.Customer.Notes,
		},
		Authenticated: req.Authenticated,
		UserID:        req.UserID,
		ClientIP:      c.ClientIP(),
	}

	out, err := s.cfg.Checkout.CreateOrder(c.Request.Context(), in)
	if err != nil {
		s.writeCheckoutError(c, out.OrderNumber, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redirectUrl": out.RedirectURL,
		"orderId":     out.PayUOrderID,
		"orderNumber": out.OrderNumber,
		"status":      out.Status,
	})
}

// writeCheckoutError classifies checkout failures. The order number always
// travels in the envelope so support can correlate the complaint; error
// details are suppressed in production.
func (s *server) writeCheckoutError(c *gin.Context, orderNumber string, err error) {
	status := http.StatusInternalServerError
	code := "payment_failed"

	switch {
	case errors.Is(err, payu.ErrInvalidCart),
		errors.Is(err, payu.ErrInvalidTotal),
		errors.Is(err, payu.ErrInvalidProductPrice),
		errors.Is(err, payu.ErrMissingCustomerField),
		errors.Is(err, payu.ErrMissingOrderNumber):
		status = http.StatusBadRequest
		code = "invalid_order"
	case errors.Is(err, payu.ErrGatewayAuth),
		errors.Is(err, payu.ErrGatewayUnreachable),
		errors.Is(err, payu.ErrInvalidResponse):
		status = http.StatusBadGateway
		code = "gateway_unavailable"
	}

	var rejected *payu.RejectedError
	if errors.As(err, &rejected) {
		status = http.StatusBadGateway
		code = "gateway_rejected"
	}

	s.logger.Errorw("create payment failed",
		"orderNumber", orderNumber, "code", code, "error", err)

	body := gin.H{"error": code, "orderNumber": orderNumber}
	if !s.cfg.Production {
		body["details"] = err.Error()
	}
	c.JSON(status, body)
}

func (s *server) toLineItems(orderNumber string, cart []CartItem) []order.LineItem {
	items := make([]order.LineItem, 0, len(cart))
	for _, ci := range cart {
		price, err := money.Normalize(ci.Price)
		if err != nil {
			s.logger.Warnw("malformed cart item price",
				"orderNumber", orderNumber, "item", ci.Name, "error", err)
		}
		items = append(items, order.LineItem{
			Name:      ci.Name,
			UnitPrice: price,
			Quantity:  ci.Quantity,
		})
	}
	return items
}

// payuWebhook hands the raw body to the reconciler. The body must reach
// verification byte-for-byte as received, so it is read here and never
// re-parsed before the signature check.
func (s *server) payuWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "ERROR"})
		return
	}

	err = s.cfg.Reconciler.HandleNotification(
		c.Request.Context(), rawBody, c.GetHeader("OpenPayU-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	case errors.Is(err, checkout.ErrInvalidSignature),
		errors.Is(err, checkout.ErrMalformedWebhook):
		c.JSON(http.StatusBadRequest, gin.H{"status": "ERROR"})
	default:
		s.logger.Errorw("webhook processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "ERROR"})
	}
}

func (s *server) createShipment(c *gin.Context) {
	var req CreateShipmentRequest
	if err := bindAndValidate(c, &req, s.validate); err != nil {
		return
	}

	in := shipping.CreateShipmentInput{
		OrderNumber: req.OrderNumber,
		Recipient: shipping.Recipient{
			FirstName:   req.Recipient.FirstName,
			LastName:    req.Recipient.LastName,
			Email:       req.Recipient.Email,
			Phone:       req.Recipient.Phone,
			PaczkomatID: req.Recipient.PaczkomatID,
		},
		PackageDetails: shipping.PackageDetails{
			Size:   req.Package.Size,
			Weight: req.Package.Weight,
		},
	}
	if a := req.Recipient.Address; a != nil {
		in.Recipient.Address = &shipping.Address{
			Street:         a.Street,
			BuildingNumber: a.BuildingNumber,
			City:           a.City,
			PostCode:       a.PostCode,
		}
	}

	shipment, err := s.cfg.Shipping.CreateShipment(c.Request.Context(), in)
	if err != nil {
		status := http.StatusInternalServerError
		code := "shipment_failed"
		switch {
		case errors.Is(err, shipping.ErrMissingRecipient), errors.Is(err, shipping.ErrMissingDelivery):
			status = http.StatusBadRequest
			code = "invalid_shipment"
		case errors.Is(err, shipping.ErrUnreachable):
			status = http.StatusBadGateway
			code = "carrier_unavailable"
		}
		var rejected *shipping.RejectedError
		if errors.As(err, &rejected) {
			status = http.StatusBadGateway
			code = "carrier_rejected"
		}

		s.logger.Errorw("create shipment failed",
			"orderNumber", req.OrderNumber, "code", code, "error", err)
		body := gin.H{"error": code, "orderNumber": req.OrderNumber}
		if !s.cfg.Production {
			body["details"] = err.Error()
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shipmentId":     shipment.ID,
		"trackingNumber": shipment.TrackingNumber,
		"labelUrl":       shipment.LabelURL,
		"status":         shipment.Status,
	})
}
