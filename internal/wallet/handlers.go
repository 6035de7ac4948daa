package wallet

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/brokersim/brokerage-api/internal/auth"
	"github.com/brokersim/brokerage-api/pkg/response"
)

// GinHandlers contains HTTP handlers for wallet endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type movementRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

// DepositHandler handles POST requests to deposit funds
func (h *GinHandlers) DepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		var req movementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		entry, err := h.service.Deposit(userID, req.Amount, req.Description)
		response.Handle(c, entry, err)
	}
}

// WithdrawHandler handles POST requests to withdraw funds
func (h *GinHandlers) WithdrawHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		var req movementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		entry, err := h.service.Withdraw(userID, req.Amount, req.Description)
		response.Handle(c, entry, err)
	}
}

// GetWalletHandler handles GET requests for the wallet summary
func (h *GinHandlers) GetWalletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		wallet, err := h.service.GetWallet(userID)
		response.Handle(c, wallet, err)
	}
}

// GetTransactionsHandler handles GET requests for the ledger history
func (h *GinHandlers) GetTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		entries, err := h.service.GetTransactions(userID)
		response.Handle(c, entries, err)
	}
}

func authenticatedUserID(c *gin.Context) string {
	claims, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, "Missing authentication claims")
		return ""
	}

	userID := auth.GetUserID(claims)
	if userID == "" {
		response.Unauthorized(c, "Invalid user ID in token")
		return ""
	}
	return userID
}
