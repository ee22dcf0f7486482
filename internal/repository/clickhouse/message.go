package clickhouse

import (
	"context"

	"github.com/omnidesk/omnidesk/internal/clickhouse"
	"github.com/omnidesk/omnidesk/internal/domain/message"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/types"
)

type MessageRepository struct {
	store  *clickhouse.ClickHouseStore
	logger *logger.Logger
}

func NewMessageRepository(store *clickhouse.ClickHouseStore, logger *logger.Logger) message.Repository {
	return &MessageRepository{store: store, logger: logger}
}

func (r *MessageRepository) InsertMessage(ctx context.Context, msg *message.Message) error {
	span := StartRepositorySpan(ctx, "message", "insert", map[string]interface{}{
		"message_id": msg.ID,
		"owner_id":   msg.OwnerID,
	})
	defer FinishSpan(span)

	if err := msg.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	query := `
		INSERT INTO messages (
			id, owner_id, channel, direction, provider_message_id, conversation_id, timestamp, ingested_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	err := r.store.GetConn().Exec(ctx, query,
		msg.ID,
		msg.OwnerID,
		string(msg.Channel),
		string(msg.Direction),
		msg.ProviderMessageID,
		msg.ConversationID,
		msg.Timestamp,
		msg.IngestedAt,
	)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to insert message").
			WithReportableDetails(map[string]interface{}{
				"message_id": msg.ID,
				"owner_id":   msg.OwnerID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *MessageRepository) CountOutbound(ctx context.Context, ownerID string, window types.CalendarWindow) (int, error) {
	span := StartRepositorySpan(ctx, "message", "count_outbound", map[string]interface{}{
		"owner_id":     ownerID,
		"window_start": window.Start,
		"window_end":   window.End,
	})
	defer FinishSpan(span)

	// Half-open window: [start, end). Only outbound messages on billable
	// channels consume entitlement.
	query := `
		SELECT count(*) AS total
		FROM messages
		WHERE owner_id = ?
		  AND direction = ?
		  AND channel IN (?)
		  AND timestamp >= ?
		  AND timestamp < ?
	`

	channels := make([]string, 0, len(types.BillableChannels))
	for _, c := range types.BillableChannels {
		channels = append(channels, string(c))
	}

	var total uint64
	row := r.store.GetConn().QueryRow(ctx, query,
		ownerID,
		string(types.MessageDirectionOutbound),
		channels,
		window.Start,
		window.End,
	)
	if err := row.Scan(&total); err != nil {
		SetSpanError(span, err)
		return 0, ierr.WithError(err).
			WithHint("Failed to count outbound messages").
			WithReportableDetails(map[string]interface{}{
				"owner_id": ownerID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return int(total), nil
}
