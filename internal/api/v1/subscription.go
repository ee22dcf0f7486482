package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnidesk/omnidesk/internal/api/dto"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/service"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, log: log}
}

// CreateSubscription starts a trial subscription for the acting owner.
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateSubscription(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to create subscription", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetCurrentSubscription returns the owner's subscription with lazy
// expiration applied.
func (h *SubscriptionHandler) GetCurrentSubscription(c *gin.Context) {
	resp, err := h.service.GetCurrentSubscription(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) PauseSubscription(c *gin.Context) {
	resp, err := h.service.PauseSubscription(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to pause subscription", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) ReactivateSubscription(c *gin.Context) {
	resp, err := h.service.ReactivateSubscription(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to reactivate subscription", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	var req dto.CancelSubscriptionRequest
	// Body is optional; an empty cancel is valid.
	_ = c.ShouldBindJSON(&req)

	resp, err := h.service.CancelSubscription(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to cancel subscription", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
