package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnidesk/omnidesk/internal/api/dto"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/service"
)

type AddOnHandler struct {
	service service.AddOnService
	log     *logger.Logger
}

func NewAddOnHandler(service service.AddOnService, log *logger.Logger) *AddOnHandler {
	return &AddOnHandler{service: service, log: log}
}

// PurchaseAddOn creates a pending credit and returns the provider checkout
// URL. The credit completes when the payment webhook lands.
func (h *AddOnHandler) PurchaseAddOn(c *gin.Context) {
	var req dto.PurchaseAddOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.PurchaseAddOn(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to purchase add-on", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListAddOns returns the owner's add-on ledger. Pass active=true for only
// the credits currently contributing.
func (h *AddOnHandler) ListAddOns(c *gin.Context) {
	var (
		resp *dto.ListAddOnsResponse
		err  error
	)
	if c.Query("active") == "true" {
		resp, err = h.service.ListActiveAddOns(c.Request.Context())
	} else {
		resp, err = h.service.ListAddOns(c.Request.Context())
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
