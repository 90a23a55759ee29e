// Package httpapi exposes the checkout backend over HTTP: the
// create-payment endpoint, the gateway webhook and the shipment endpoint.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/checkout"
	"github.com/familybalance/checkout-backend/internal/shipping"
)

// CheckoutService is the slice of the checkout service the routes use.
type CheckoutService interface {
	CreateOrder(ctx context.Context, in checkout.CreateOrderInput) (checkout.CreateOrderOutput, error)
}

// WebhookReconciler applies gateway notifications.
type WebhookReconciler interface {
	HandleNotification(ctx context.Context, rawBody []byte, signatureHeader string) error
}

// ShipmentCreator registers shipments with the carrier.
type ShipmentCreator interface {
	CreateShipment(ctx context.Context, in shipping.CreateShipmentInput) (shipping.Shipment, error)
}

// ServerConfig groups dependencies for the HTTP routes.
type ServerConfig struct {
	Checkout   CheckoutService
	Reconciler WebhookReconciler
	Shipping   ShipmentCreator
	Logger     *zap.SugaredLogger
	// Production suppresses error details in responses.
	Production bool
}

type server struct {
	cfg      ServerConfig
	validate *validatorv10.Validate
	logger   *zap.SugaredLogger
}

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(cfg ServerConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &server{
		cfg:      cfg,
		validate: newValidator(),
		logger:   cfg.Logger,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(securityHeaders())

	r.GET("/health", s.health)
	r.POST("/api/create-payment", s.createPayment)
	r.POST("/api/payu-webhook", s.payuWebhook)
	r.POST("/api/create-shipment", s.createShipment)

	return r
}

// securityHeaders sets the baseline response headers on every route.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}
