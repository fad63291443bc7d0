package cron

import (
	"net/http"
	"time"

	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/service"
	"github.com/gin-gonic/gin"
)

// SweeperHandler exposes the lifecycle sweeps as HTTP endpoints so an
// external scheduler can trigger them in addition to the in-process cron.
type SweeperHandler struct {
	logger         *logger.Logger
	sweeperService service.SweeperService
}

func NewSweeperHandler(logger *logger.Logger, sweeperService service.SweeperService) *SweeperHandler {
	return &SweeperHandler{
		logger:         logger,
		sweeperService: sweeperService,
	}
}

// RunSweep runs the expiration pass followed by the renewal pass
func (h *SweeperHandler) RunSweep(c *gin.Context) {
	now := time.Now().UTC()
	h.logger.Infow("starting lifecycle sweep", "now", now.Format(time.RFC3339))

	resp, err := h.sweeperService.Run(c.Request.Context(), now)
	if err != nil {
		h.logger.Errorw("lifecycle sweep failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RunExpirations downgrades accounts whose paid tier has lapsed
func (h *SweeperHandler) RunExpirations(c *gin.Context) {
	now := time.Now().UTC()
	h.logger.Infow("starting expiration sweep", "now", now.Format(time.RFC3339))

	resp, err := h.sweeperService.SweepExpirations(c.Request.Context(), now)
	if err != nil {
		h.logger.Errorw("expiration sweep failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RunRenewals grants the monthly allotment for accounts entering a new cycle
func (h *SweeperHandler) RunRenewals(c *gin.Context) {
	now := time.Now().UTC()
	h.logger.Infow("starting renewal sweep", "now", now.Format(time.RFC3339))

	resp, err := h.sweeperService.SweepRenewals(c.Request.Context(), now)
	if err != nil {
		h.logger.Errorw("renewal sweep failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
