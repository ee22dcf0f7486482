package repository

import (
	"github.com/omnidesk/omnidesk/internal/clickhouse"
	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/domain/message"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/postgres"
	clickhouseRepo "github.com/omnidesk/omnidesk/internal/repository/clickhouse"
	postgresRepo "github.com/omnidesk/omnidesk/internal/repository/postgres"
)

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(client, logger)
}

func NewAddOnRepository(client postgres.IClient, logger *logger.Logger) addon.Repository {
	return postgresRepo.NewAddOnRepository(client, logger)
}

func NewMessageRepository(store *clickhouse.ClickHouseStore, logger *logger.Logger) message.Repository {
	return clickhouseRepo.NewMessageRepository(store, logger)
}
