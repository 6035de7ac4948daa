package notifications

import (
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/types"
)

// Notification types emitted by the engine.
const (
	TypeOrderCompleted = "ORDER_COMPLETED"
	TypeOrderFailed    = "ORDER_FAILED"
	TypeDividend       = "DIVIDEND"
	TypeWallet         = "WALLET"
)

// Notifier delivers a message to a user. Delivery is fire-and-forget: errors
// are logged and never propagated, so a notification failure can never alter
// an order's outcome.
type Notifier interface {
	Notify(userID, notificationType, title, message string)
}

// Service persists notifications to the store.
type Service struct {
	db *gorm.DB
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: gormDB}
}

func (s *Service) Notify(userID, notificationType, title, message string) {
	n := &types.Notification{
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}

	if err := s.db.Create(n).Error; err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID).
			Str("type", notificationType).
			Msg("failed to persist notification")
		return
	}

	log.Debug().
		Str("user_id", userID).
		Str("type", notificationType).
		Str("title", title).
		Msg("notification delivered")
}

// ListForUser returns a user's notifications, newest first.
func (s *Service) ListForUser(userID string) ([]types.Notification, error) {
	var list []types.Notification
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
