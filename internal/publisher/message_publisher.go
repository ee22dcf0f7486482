package publisher

import (
	"context"
	"encoding/json"

	"github.com/omnidesk/omnidesk/internal/api/dto"
	"github.com/omnidesk/omnidesk/internal/config"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/kafka"
	"github.com/omnidesk/omnidesk/internal/logger"
)

// MessagePublisher puts platform message events on the ingestion topic. The
// consumer mode of the server drains the topic into the message log, so the
// HTTP ingestion path never writes to ClickHouse directly.
type MessagePublisher interface {
	Publish(ctx context.Context, event *dto.MessageEvent) error
}

type messagePublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *logger.Logger
}

func NewMessagePublisher(cfg *config.Configuration, producer *kafka.Producer, logger *logger.Logger) MessagePublisher {
	return &messagePublisher{
		producer: producer,
		topic:    cfg.Kafka.Topic,
		logger:   logger,
	}
}

func (p *messagePublisher) Publish(ctx context.Context, event *dto.MessageEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize message event").
			Mark(ierr.ErrValidation)
	}

	// The provider message id doubles as the watermill message id so broker
	// redeliveries keep a stable identity.
	if err := p.producer.PublishWithID(p.topic, payload, event.ProviderMessageID); err != nil {
		p.logger.Errorw("failed to publish message event",
			"owner_id", event.OwnerID,
			"channel", event.Channel,
			"error", err,
		)
		return ierr.WithError(err).
			WithHint("Failed to enqueue message event").
			Mark(ierr.ErrSystem)
	}

	p.logger.Debugw("published message event",
		"owner_id", event.OwnerID,
		"channel", event.Channel,
		"direction", event.Direction,
	)
	return nil
}
