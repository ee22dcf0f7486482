package service

import (
	"github.com/omnidesk/omnidesk/internal/cache"
	"github.com/omnidesk/omnidesk/internal/config"
	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/domain/billing"
	"github.com/omnidesk/omnidesk/internal/domain/message"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	// Repositories
	SubRepo     subscription.Repository
	AddOnRepo   addon.Repository
	MessageRepo message.Repository

	// Integrations
	BillingProvider billing.Provider
}

func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	subRepo subscription.Repository,
	addOnRepo addon.Repository,
	messageRepo message.Repository,
	billingProvider billing.Provider,
) ServiceParams {
	return ServiceParams{
		Logger:          logger,
		Config:          config,
		DB:              db,
		Cache:           cache,
		SubRepo:         subRepo,
		AddOnRepo:       addOnRepo,
		MessageRepo:     messageRepo,
		BillingProvider: billingProvider,
	}
}
