package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/omnidesk/omnidesk/internal/api/v1"
	"github.com/omnidesk/omnidesk/internal/config"
	"github.com/omnidesk/omnidesk/internal/rest/middleware"
)

type Handlers struct {
	Subscription *v1.SubscriptionHandler
	AddOn        *v1.AddOnHandler
	Entitlement  *v1.EntitlementHandler
	Message      *v1.MessageHandler
	Webhook      *v1.WebhookHandler
	Health       *v1.HealthHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.SentryMiddleware(cfg))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	// Provider webhooks authenticate by signature and must not be rate
	// limited; Stripe's retries would amplify into dropped events.
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/stripe", handlers.Webhook.HandleStripeWebhook)
	}

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.OwnerContextMiddleware)
	v1Group.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Entitlement routes
	router.GET("/entitlement", handlers.Entitlement.GetEntitlement)

	// Subscription routes
	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("/current", handlers.Subscription.GetCurrentSubscription)
		subscriptions.POST("/pause", handlers.Subscription.PauseSubscription)
		subscriptions.POST("/reactivate", handlers.Subscription.ReactivateSubscription)
		subscriptions.POST("/cancel", handlers.Subscription.CancelSubscription)
	}

	// Add-on routes
	addons := router.Group("/addons")
	{
		addons.GET("", handlers.AddOn.ListAddOns)
		addons.POST("/purchase", handlers.AddOn.PurchaseAddOn)
	}

	// Message ingestion
	router.POST("/messages", handlers.Message.IngestMessage)
}
