package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Required environment variables. Startup fails listing every missing one,
// so a half-configured deployment never takes live traffic.
var required = []string{
	"PAYU_BASE_URL",
	"PAYU_POS_ID",
	"PAYU_MD5_KEY",
	"PAYU_OAUTH_CLIENT_ID",
	"PAYU_OAUTH_CLIENT_SECRET",
	"BASE_URL",
	"FRONTEND_URL",
	"ORDERS_TABLE",
	"ORDERS_BUCKET",
}

type Config struct {
	Environment string // "development" | "production"

	// PayU
	PayUBaseURL      string
	PayUPosID        string
	PayUMD5Key       string
	PayUClientID     string
	PayUClientSecret string

	// Callback URLs
	BaseURL     string
	FrontendURL string

	// Storage
	OrdersTable    string // DynamoDB table for authenticated orders
	OrdersBucket   string // S3 bucket holding the guest-order ledger
	OrdersSheetKey string // object key of the ledger, default "orders/orders.csv"

	// Events & metrics
	OrderEventsQueueURL string
	MetricsNamespace    string

	// InPost ShipX
	InPostAPIURL         string
	InPostToken          string
	InPostOrganizationID string

	ListenAddr string
}

// Load reads configuration from the environment. A .env file is honored for
// local development; missing required variables are reported together.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	for _, name := range required {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		Environment: envOrDefault("APP_ENV", "development"),

		PayUBaseURL:      strings.TrimRight(os.Getenv("PAYU_BASE_URL"), "/"),
		PayUPosID:        os.Getenv("PAYU_POS_ID"),
		PayUMD5Key:       os.Getenv("PAYU_MD5_KEY"),
		PayUClientID:     os.Getenv("PAYU_OAUTH_CLIENT_ID"),
		PayUClientSecret: os.Getenv("PAYU_OAUTH_CLIENT_SECRET"),

		BaseURL:     strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		FrontendURL: strings.TrimRight(os.Getenv("FRONTEND_URL"), "/"),

		OrdersTable:    os.Getenv("ORDERS_TABLE"),
		OrdersBucket:   os.Getenv("ORDERS_BUCKET"),
		OrdersSheetKey: envOrDefault("ORDERS_SHEET_KEY", "orders/orders.csv"),

		OrderEventsQueueURL: os.Getenv("ORDER_EVENTS_QUEUE_URL"),
		MetricsNamespace:    envOrDefault("METRICS_NAMESPACE", "Checkout"),

		InPostAPIURL:         envOrDefault("INPOST_API_URL", "https://api-shipx-pl.easypack24.net/v1"),
		InPostToken:          os.Getenv("INPOST_API_TOKEN"),
		InPostOrganizationID: os.Getenv("INPOST_ORGANIZATION_ID"),

		ListenAddr: envOrDefault("LISTEN_ADDR", ":8080"),
	}
	return cfg, nil
}

// Production reports whether error responses should hide internal details.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
