package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/service"
)

type EntitlementHandler struct {
	service service.EntitlementService
	log     *logger.Logger
}

func NewEntitlementHandler(service service.EntitlementService, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{service: service, log: log}
}

// GetEntitlement returns the computed usage entitlement for the acting
// owner: limits, usage, percentages and the send gate.
func (h *EntitlementHandler) GetEntitlement(c *gin.Context) {
	resp, err := h.service.GetEntitlement(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
