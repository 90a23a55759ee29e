package main

import (
	"context"
	"log"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/awsx"
	"github.com/familybalance/checkout-backend/internal/config"
	"github.com/familybalance/checkout-backend/internal/shipping"
	"github.com/familybalance/checkout-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	var logger *zap.Logger
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	clients, err := awsx.NewClients(context.Background())
	if err != nil {
		sugar.Fatalw("failed to init aws clients", "error", err)
	}

	processor := NewProcessor(
		store.NewDynamoStore(clients.DynamoDB, cfg.OrdersTable),
		shipping.NewClient(cfg.InPostAPIURL, cfg.InPostToken, cfg.InPostOrganizationID, sugar),
		sugar,
	)

	// RUN_LOCAL simulates a single paid-order event for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"type":"order.status_changed","order_number":"ORD-local-1","status":"PAID"}`
		}
		event := lambdaevents.SQSEvent{
			Records: []lambdaevents.SQSMessage{{Body: body}},
		}
		if err := processor.Handle(context.Background(), event); err != nil {
			sugar.Fatalw("local handler error", "error", err)
		}
		return
	}

	lambda.Start(processor.Handle)
}
