package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/focusdeck/creditcore/internal/api/dto"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/service"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	service service.AccountService
	logger  *logger.Logger
}

func NewAccountHandler(service service.AccountService, logger *logger.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger,
	}
}

// @Summary Create an account
// @Description Register an account with the credit core and open its balance
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account body dto.CreateAccountRequest true "Account to create"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	// Use strict JSON binding to reject unknown fields
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format. Unknown fields are not allowed").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateAccount(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get an account
// @Description Get an account by ID
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("account id is required").
			WithHint("Account ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetAccount(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get an account's balance
// @Description Get the current credit balance for an account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} dto.BalanceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /accounts/{id}/balance [get]
func (h *AccountHandler) GetBalance(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("account id is required").
			WithHint("Account ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetBalance(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List an account's transactions
// @Description List ledger transactions for an account, newest first
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param kind query string false "Transaction kind"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /accounts/{id}/transactions [get]
func (h *AccountHandler) ListTransactions(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("account id is required").
			WithHint("Account ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	filter := &ledger.TransactionFilter{AccountID: id}

	if kind := c.Query("kind"); kind != "" {
		k := types.TransactionKind(kind)
		if err := k.Validate(); err != nil {
			c.Error(err)
			return
		}
		filter.Kind = &k
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.Error(ierr.NewError("invalid limit").
				WithHint("Limit must be a non-negative integer").
				Mark(ierr.ErrValidation))
			return
		}
		filter.Limit = n
	}
	if offset := c.Query("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			c.Error(ierr.NewError("invalid offset").
				WithHint("Offset must be a non-negative integer").
				Mark(ierr.ErrValidation))
			return
		}
		filter.Offset = n
	}

	resp, err := h.service.GetTransactions(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
