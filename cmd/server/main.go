package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnidesk/omnidesk/internal/api"
	"github.com/omnidesk/omnidesk/internal/api/dto"
	v1 "github.com/omnidesk/omnidesk/internal/api/v1"
	"github.com/omnidesk/omnidesk/internal/cache"
	"github.com/omnidesk/omnidesk/internal/clickhouse"
	"github.com/omnidesk/omnidesk/internal/config"
	"github.com/omnidesk/omnidesk/internal/domain/billing"
	"github.com/omnidesk/omnidesk/internal/integration/stripe"
	"github.com/omnidesk/omnidesk/internal/kafka"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/postgres"
	"github.com/omnidesk/omnidesk/internal/publisher"
	"github.com/omnidesk/omnidesk/internal/repository"
	"github.com/omnidesk/omnidesk/internal/sentry"
	"github.com/omnidesk/omnidesk/internal/service"
	"github.com/omnidesk/omnidesk/internal/types"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.Initialize,

			// Postgres
			postgres.NewClient,

			// Clickhouse
			clickhouse.NewClickHouseStore,

			// Producers and Consumers
			kafka.NewProducer,
			kafka.NewConsumer,
			publisher.NewMessagePublisher,

			// Billing provider
			stripe.NewClient,
			provideBillingProvider,

			// Repositories
			repository.NewSubscriptionRepository,
			repository.NewAddOnRepository,
			repository.NewMessageRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewSubscriptionService,
			service.NewUsageService,
			service.NewEntitlementService,
			service.NewAddOnService,
			service.NewBillingReconcilerService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideBillingProvider(client *stripe.Client) billing.Provider {
	return client
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	db postgres.IClient,
	stripeClient *stripe.Client,
	subscriptionService service.SubscriptionService,
	entitlementService service.EntitlementService,
	addOnService service.AddOnService,
	reconcilerService service.BillingReconcilerService,
	messagePublisher publisher.MessagePublisher,
) api.Handlers {
	return api.Handlers{
		Subscription: v1.NewSubscriptionHandler(subscriptionService, logger),
		AddOn:        v1.NewAddOnHandler(addOnService, logger),
		Entitlement:  v1.NewEntitlementHandler(entitlementService, logger),
		Message:      v1.NewMessageHandler(messagePublisher, logger),
		Webhook:      v1.NewWebhookHandler(stripeClient, reconcilerService, logger),
		Health:       v1.NewHealthHandler(db, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration) *gin.Engine {
	return api.NewRouter(handlers, cfg)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	consumer kafka.MessageConsumer,
	usageService service.UsageService,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		if consumer == nil {
			log.Fatal("Kafka consumer required for local mode")
		}
		startAPIServer(lc, r, cfg, log)
		startConsumer(lc, consumer, usageService, cfg, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeConsumer:
		if consumer == nil {
			log.Fatal("Kafka consumer required for consumer mode")
		}
		startConsumer(lc, consumer, usageService, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startConsumer(
	lc fx.Lifecycle,
	consumer kafka.MessageConsumer,
	usageService service.UsageService,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go consumeMessages(consumer, usageService, cfg, log)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down consumer...")
			return consumer.Close()
		},
	})
}

// consumeMessages appends every platform message to the usage log. Failed
// inserts nack so the broker redelivers; the log is append-only and counts
// are derived at read time, so replays only risk the provider-side dedupe.
func consumeMessages(consumer kafka.MessageConsumer, usageService service.UsageService, cfg *config.Configuration, log *logger.Logger) {
	messages, err := consumer.Subscribe(cfg.Kafka.Topic)
	if err != nil {
		log.Fatalf("Failed to subscribe to topic %s: %v", cfg.Kafka.Topic, err)
	}

	for msg := range messages {
		var event dto.MessageEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			log.Errorf("Failed to unmarshal message event: %v, payload: %s", err, string(msg.Payload))
			// Malformed payloads never become valid; drop them.
			msg.Ack()
			continue
		}

		if err := usageService.RecordMessage(context.Background(), &event); err != nil {
			log.Errorf("Failed to record message: %v, payload: %s", err, string(msg.Payload))
			msg.Nack()
			continue
		}
		msg.Ack()
	}
}
