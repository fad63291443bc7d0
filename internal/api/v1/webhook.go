package v1

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/focusdeck/creditcore/internal/api/dto"
	"github.com/focusdeck/creditcore/internal/config"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/service"
	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	service service.BillingService
	cfg     *config.Configuration
	logger  *logger.Logger
}

func NewWebhookHandler(service service.BillingService, cfg *config.Configuration, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

// verifySecret checks the shared secret configured for the provider. An
// empty configured secret disables the check for that provider.
func (h *WebhookHandler) verifySecret(c *gin.Context, provider dto.BillingProvider) error {
	var secret string
	switch provider {
	case dto.BillingProviderStripe:
		secret = h.cfg.Webhook.StripeSecret
	case dto.BillingProviderPaddle:
		secret = h.cfg.Webhook.PaddleSecret
	}
	if secret == "" {
		return nil
	}

	got := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		return ierr.NewError("webhook secret mismatch").
			WithHint("Invalid webhook credentials").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

// @Summary Process a billing event
// @Description Process a normalized billing webhook from a payment processor.
// @Description Redelivered events are deduplicated by their event id.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Billing provider" Enums(stripe, paddle)
// @Param event body dto.BillingEventRequest true "Billing event"
// @Success 200 {object} dto.BillingEventResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 403 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /webhooks/{provider} [post]
func (h *WebhookHandler) HandleBillingEvent(c *gin.Context) {
	provider := dto.BillingProvider(c.Param("provider"))
	if err := provider.Validate(); err != nil {
		c.Error(err)
		return
	}

	if err := h.verifySecret(c, provider); err != nil {
		c.Error(err)
		return
	}

	var req dto.BillingEventRequest
	// Use strict JSON binding to reject unknown fields
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format. Unknown fields are not allowed").
			Mark(ierr.ErrValidation))
		return
	}

	h.logger.Infow("received billing event",
		"provider", provider,
		"event_id", req.EventID,
		"type", req.Type)

	resp, err := h.service.ProcessBillingEvent(c.Request.Context(), provider, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
