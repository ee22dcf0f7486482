package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/integration/stripe"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/service"
)

type WebhookHandler struct {
	stripeClient *stripe.Client
	reconciler   service.BillingReconcilerService
	log          *logger.Logger
}

func NewWebhookHandler(stripeClient *stripe.Client, reconciler service.BillingReconcilerService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		stripeClient: stripeClient,
		reconciler:   reconciler,
		log:          log,
	}
}

// HandleStripeWebhook verifies, normalizes and reconciles a provider event.
// Deferred events surface as 503 so Stripe's own retry schedule re-delivers
// them once the local record exists.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	event, err := h.stripeClient.ParseWebhookEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.Error(err)
		return
	}

	normalized, err := h.stripeClient.NormalizeEvent(event)
	if err != nil {
		c.Error(err)
		return
	}
	if normalized == nil {
		// Unhandled event type; acknowledge so Stripe stops retrying.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.reconciler.ProcessEvent(c.Request.Context(), normalized); err != nil {
		if ierr.IsDeferred(err) {
			h.log.Infow("deferred billing event",
				"event_id", normalized.ID,
				"event_type", normalized.Type,
			)
		} else {
			h.log.Errorw("failed to process billing event",
				"event_id", normalized.ID,
				"event_type", normalized.Type,
				"error", err,
			)
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
