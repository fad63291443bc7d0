package v1

import (
	"encoding/json"
	"net/http"

	"github.com/focusdeck/creditcore/internal/api/dto"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/service"
	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	service service.LedgerService
	logger  *logger.Logger
}

func NewLedgerHandler(service service.LedgerService, logger *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		logger:  logger,
	}
}

// @Summary Debit credits
// @Description Deduct credits from an account for feature usage. Replaying
// @Description the same idempotency key returns the original transaction.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param debit body dto.DebitRequest true "Debit to apply"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 402 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /accounts/{id}/debit [post]
func (h *LedgerHandler) DebitCredits(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("account id is required").
			WithHint("Account ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.DebitRequest
	// Use strict JSON binding to reject unknown fields
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format. Unknown fields are not allowed").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	txn, err := h.service.Debit(c.Request.Context(), service.DebitCommand{
		AccountID:      id,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		Description:    req.Description,
		Metadata:       req.Metadata,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTransaction(txn))
}
