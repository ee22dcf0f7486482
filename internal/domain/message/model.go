package message

import (
	"time"

	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
)

// Message is one row in the append-only message log. Usage counting reads
// this log directly; there is no cached counter to drift out of sync.
type Message struct {
	ID                string                 `json:"id" ch:"id"`
	OwnerID           string                 `json:"owner_id" ch:"owner_id"`
	Channel           types.ChannelType      `json:"channel" ch:"channel"`
	Direction         types.MessageDirection `json:"direction" ch:"direction"`
	ProviderMessageID string                 `json:"provider_message_id" ch:"provider_message_id"`
	ConversationID    string                 `json:"conversation_id" ch:"conversation_id"`
	Timestamp         time.Time              `json:"timestamp" ch:"timestamp"`
	IngestedAt        time.Time              `json:"ingested_at" ch:"ingested_at"`
}

func New(ownerID string, channel types.ChannelType, direction types.MessageDirection, providerMessageID string, conversationID string, ts time.Time) *Message {
	return &Message{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MESSAGE),
		OwnerID:           ownerID,
		Channel:           channel,
		Direction:         direction,
		ProviderMessageID: providerMessageID,
		ConversationID:    conversationID,
		Timestamp:         ts.UTC(),
		IngestedAt:        time.Now().UTC(),
	}
}

func (m *Message) Validate() error {
	if m.OwnerID == "" {
		return ierr.NewError("owner_id is required").
			WithHint("Message must belong to an owner").
			Mark(ierr.ErrValidation)
	}
	if err := m.Channel.Validate(); err != nil {
		return err
	}
	if err := m.Direction.Validate(); err != nil {
		return err
	}
	return nil
}

// CountsTowardQuota reports whether the message consumes entitlement:
// outbound on a billable channel.
func (m *Message) CountsTowardQuota() bool {
	return m.Direction == types.MessageDirectionOutbound && m.Channel.IsBillable()
}
