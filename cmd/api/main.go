package main

import (
	"context"
	"log"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"go.uber.org/zap"

	"github.com/familybalance/checkout-backend/internal/awsx"
	"github.com/familybalance/checkout-backend/internal/checkout"
	"github.com/familybalance/checkout-backend/internal/config"
	"github.com/familybalance/checkout-backend/internal/events"
	"github.com/familybalance/checkout-backend/internal/httpapi"
	"github.com/familybalance/checkout-backend/internal/metrics"
	"github.com/familybalance/checkout-backend/internal/payu"
	"github.com/familybalance/checkout-backend/internal/shipping"
	"github.com/familybalance/checkout-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()
	sugar := logger.Sugar()

	clients, err := awsx.NewClients(context.Background())
	if err != nil {
		sugar.Fatalw("failed to init aws clients", "error", err)
	}

	payuCfg := payu.Config{
		BaseURL:      cfg.PayUBaseURL,
		PosID:        cfg.PayUPosID,
		MD5Key:       cfg.PayUMD5Key,
		ClientID:     cfg.PayUClientID,
		ClientSecret: cfg.PayUClientSecret,
		NotifyURL:    cfg.BaseURL + "/api/payu-webhook",
		ContinueURL:  cfg.FrontendURL + "/platnosc-zakonczona",
	}
	signer := payu.NewSigner(payuCfg.MD5Key)

	dualStore := store.NewDualStore(
		store.NewDynamoStore(clients.DynamoDB, cfg.OrdersTable),
		store.NewSheetStore(clients.S3, cfg.OrdersBucket, cfg.OrdersSheetKey),
		sugar,
	)
	publisher := events.NewPublisher(clients.SQS, cfg.OrderEventsQueueURL)
	recorder := metrics.NewRecorder(clients.CloudWatch, cfg.MetricsNamespace, sugar)

	service := checkout.NewService(
		payu.NewBuilder(payuCfg, sugar),
		payu.NewClient(payuCfg, signer, sugar),
		dualStore,
		publisher,
		recorder,
		sugar,
	)
	reconciler := checkout.NewReconciler(signer, dualStore, publisher, recorder, sugar)
	shipper := shipping.NewClient(cfg.InPostAPIURL, cfg.InPostToken, cfg.InPostOrganizationID, sugar)

	router := httpapi.NewRouter(httpapi.ServerConfig{
		Checkout:   service,
		Reconciler: reconciler,
		Shipping:   shipper,
		Logger:     sugar,
		Production: cfg.Production(),
	})

	if os.Getenv("RUN_LOCAL") == "true" {
		sugar.Infow("running local server", "addr", cfg.ListenAddr)
		if err := router.Run(cfg.ListenAddr); err != nil {
			sugar.Fatalw("local server failed", "error", err)
		}
		return
	}

	adapter := ginadapter.New(router)
	lambda.Start(func(ctx context.Context, req lambdaevents.APIGatewayProxyRequest) (any, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.Production() {
		logger, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("failed to init logger: %v", err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	return logger
}
