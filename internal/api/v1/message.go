package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnidesk/omnidesk/internal/api/dto"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/publisher"
	"github.com/omnidesk/omnidesk/internal/types"
)

type MessageHandler struct {
	publisher publisher.MessagePublisher
	log       *logger.Logger
}

func NewMessageHandler(publisher publisher.MessagePublisher, log *logger.Logger) *MessageHandler {
	return &MessageHandler{publisher: publisher, log: log}
}

// IngestMessage enqueues a message event for the usage log. Ingestion is
// asynchronous; the consumer persists the event, so a 202 only means the
// event is on the topic.
func (h *MessageHandler) IngestMessage(c *gin.Context) {
	var event dto.MessageEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	// Connectors may omit the owner and timestamp; fill them from the
	// request context and arrival time.
	if event.OwnerID == "" {
		event.OwnerID = types.GetOwnerID(c.Request.Context())
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := h.publisher.Publish(c.Request.Context(), &event); err != nil {
		h.log.Error("Failed to publish message event", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}
