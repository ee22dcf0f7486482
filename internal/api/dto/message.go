package dto

import (
	"time"

	"github.com/omnidesk/omnidesk/internal/domain/message"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/omnidesk/omnidesk/internal/validator"
)

// MessageEvent is the payload the channel connectors publish for every
// message that crosses the platform. The consumer appends these to the
// message log.
type MessageEvent struct {
	OwnerID           string                 `json:"owner_id" validate:"required"`
	Channel           types.ChannelType      `json:"channel" validate:"required"`
	Direction         types.MessageDirection `json:"direction" validate:"required"`
	ProviderMessageID string                 `json:"provider_message_id"`
	ConversationID    string                 `json:"conversation_id"`
	Timestamp         time.Time              `json:"timestamp" validate:"required"`
}

func (e *MessageEvent) Validate() error {
	if err := validator.ValidateRequest(e); err != nil {
		return err
	}
	if err := e.Channel.Validate(); err != nil {
		return err
	}
	return e.Direction.Validate()
}

func (e *MessageEvent) ToMessage() *message.Message {
	return message.New(e.OwnerID, e.Channel, e.Direction, e.ProviderMessageID, e.ConversationID, e.Timestamp)
}
