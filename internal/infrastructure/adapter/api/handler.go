package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
	userUseCase "github.com/amirhossein-jamali/trading-ledger/internal/domain/usecase/user"
)

// BalanceResponse is the JSON body for a balance read
type BalanceResponse struct {
	UserID  uint64 `json:"userId"`
	Balance string `json:"balance"`
}

// HoldingResponse is the JSON body for one holding row
type HoldingResponse struct {
	UserID   uint64 `json:"userId"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// ErrorResponse is the JSON body for a failed request
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AdminHandler serves the read-only admin endpoints
type AdminHandler struct {
	users  *userUseCase.UserUseCase
	logger coreport.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(users *userUseCase.UserUseCase, logger coreport.Logger) *AdminHandler {
	return &AdminHandler{
		users:  users,
		logger: logger,
	}
}

// Health handles GET /health
func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetBalance handles GET /api/users/:id/balance
func (h *AdminHandler) GetBalance(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, errs.ErrInvalidUserID)
		return
	}

	balance, err := h.users.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		UserID:  userID,
		Balance: balance,
	})
}

// ListHoldings handles GET /api/holdings
func (h *AdminHandler) ListHoldings(c *gin.Context) {
	holdings, err := h.users.ListHoldings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]HoldingResponse, 0, len(holdings))
	for _, holding := range holdings {
		response = append(response, HoldingResponse{
			UserID:   holding.UserID,
			Symbol:   holding.Symbol,
			Name:     holding.Name,
			Quantity: holding.Quantity.String(),
		})
	}

	c.JSON(http.StatusOK, response)
}

// ListUserHoldings handles GET /api/users/:id/holdings
func (h *AdminHandler) ListUserHoldings(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, errs.ErrInvalidUserID)
		return
	}

	holdings, err := h.users.ListUserHoldings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]HoldingResponse, 0, len(holdings))
	for _, holding := range holdings {
		response = append(response, HoldingResponse{
			UserID:   holding.UserID,
			Symbol:   holding.Symbol,
			Name:     holding.Name,
			Quantity: holding.Quantity.String(),
		})
	}

	c.JSON(http.StatusOK, response)
}

// respondError maps domain errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errs.IsInvalidInputError(err):
		status = http.StatusBadRequest
	case errs.IsUserNotFoundError(err):
		status = http.StatusNotFound
	case errs.IsUserLockedError(err):
		status = http.StatusConflict
	case errs.IsTransactionFailedError(err):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, ErrorResponse{
		Code:    errs.ErrorCode(err),
		Message: err.Error(),
	})
}
