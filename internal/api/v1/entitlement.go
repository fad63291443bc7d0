package v1

import (
	"net/http"

	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/service"
	"github.com/gin-gonic/gin"
)

type EntitlementHandler struct {
	service service.EntitlementService
	logger  *logger.Logger
}

func NewEntitlementHandler(service service.EntitlementService, logger *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		service: service,
		logger:  logger,
	}
}

// @Summary Get an account's entitlements
// @Description Get the effective tier, feature flags and limits for an account
// @Tags Entitlements
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} plan.Entitlements
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /accounts/{id}/entitlements [get]
func (h *EntitlementHandler) GetEntitlements(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("account id is required").
			WithHint("Account ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetEntitlements(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
