package engine

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/brokersim/brokerage-api/internal/auth"
	"github.com/brokersim/brokerage-api/pkg/response"
)

// GinHandlers contains HTTP handlers for order and portfolio endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for the engine
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type orderRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required"`
}

// BuyOrderHandler handles POST requests to place buy orders
// Requires a valid JWT token; the account is taken from the token claims
func (h *GinHandlers) BuyOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		var req orderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.CreateBuyOrder(c.Request.Context(), userID, req.Symbol, req.Quantity)
		response.Handle(c, order, err)
	}
}

// SellOrderHandler handles POST requests to place sell orders
func (h *GinHandlers) SellOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		var req orderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.CreateSellOrder(c.Request.Context(), userID, req.Symbol, req.Quantity)
		response.Handle(c, order, err)
	}
}

// GetOrderHandler handles GET requests to retrieve a single order
// URL parameter: order_id; only the owning user can see the order
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		orderID := c.Param("order_id")
		if orderID == "" {
			response.BadRequest(c, "Order ID is required")
			return
		}

		order, err := h.service.GetOrder(orderID, userID)
		if err != nil || order == nil {
			response.NotFound(c, "Order not found")
			return
		}

		response.Success(c, order)
	}
}

// ListOrdersHandler handles GET requests for the user's order history
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		orders, err := h.service.GetOrdersForUser(userID)
		response.Handle(c, orders, err)
	}
}

// PortfolioHandler handles GET requests for the portfolio view
func (h *GinHandlers) PortfolioHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := authenticatedUserID(c)
		if userID == "" {
			return
		}

		portfolio, err := h.service.GetPortfolio(c.Request.Context(), userID)
		response.Handle(c, portfolio, err)
	}
}

type dividendRequest struct {
	PerShare decimal.Decimal `json:"per_share" binding:"required"`
}

// DistributeDividendHandler handles POST requests to distribute a per-share
// dividend for a symbol. Internal route, protected by internal auth.
// URL parameter: symbol
func (h *GinHandlers) DistributeDividendHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		symbol := c.Param("symbol")
		if symbol == "" {
			response.BadRequest(c, "Symbol is required")
			return
		}

		var req dividendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.DistributeDividend(c.Request.Context(), symbol, req.PerShare)
		response.Handle(c, result, err)
	}
}

// authenticatedUserID pulls the user ID out of the JWT claims set by the auth
// middleware, writing the error response itself when the claims are missing.
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
