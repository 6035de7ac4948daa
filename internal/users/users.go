package users

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/config"
	"github.com/brokersim/brokerage-api/internal/types"
	"github.com/brokersim/brokerage-api/pkg/response"
)

// Service handles user registration. Registering a user provisions their
// wallet with the configured opening balance in the same transaction; the
// wallet is never deleted while the user exists.
type Service struct {
	db             *gorm.DB
	openingBalance decimal.Decimal
}

func NewService(gormDB *gorm.DB, cfg config.Config) *Service {
	return &Service{
		db:             gormDB,
		openingBalance: cfg.OpeningBalance,
	}
}

// RegisteredUser is returned once at registration; the API secret is not
// retrievable afterwards.
type RegisteredUser struct {
	UserID    string          `json:"user_id"`
	APIKey    string          `json:"api_key"`
	APISecret string          `json:"api_secret"`
	Balance   decimal.Decimal `json:"balance"`
}

// Register creates a user with fresh API credentials and their wallet.
func (s *Service) Register() (*RegisteredUser, error) {
	now := time.Now()
	user := &types.User{
		UserID:    uuid.New().String(),
		APIKey:    uuid.New().String(),
		APISecret: uuid.New().String(),
		CreatedAt: now,
	}
	wallet := &types.Wallet{
		UserID:         user.UserID,
		Balance:        s.openingBalance,
		TotalDeposited: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		LastUpdated:    now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(wallet).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", user.UserID).
		Str("opening_balance", s.openingBalance.StringFixed(2)).
		Msg("registered new user")

	return &RegisteredUser{
		UserID:    user.UserID,
		APIKey:    user.APIKey,
		APISecret: user.APISecret,
		Balance:   wallet.Balance,
	}, nil
}

// GinHandlers contains HTTP handlers for user endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RegisterHandler handles POST requests to create a user and wallet
func (h *GinHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.service.Register()
		response.Handle(c, user, err)
	}
}
