package users

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/brokersim/brokerage-api/internal/config"
	"github.com/brokersim/brokerage-api/internal/database"
	"github.com/brokersim/brokerage-api/internal/types"
)

func TestRegisterProvisionsWallet(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "users_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	opening := decimal.NewFromFloat(100000.00)
	service := NewService(db, config.Config{OpeningBalance: opening})

	registered, err := service.Register()
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if registered.UserID == "" || registered.APIKey == "" || registered.APISecret == "" {
		t.Fatalf("incomplete credentials: %+v", registered)
	}
	if !registered.Balance.Equal(opening) {
		t.Errorf("balance = %s, want %s", registered.Balance, opening)
	}

	var user types.User
	if err := db.Where("user_id = ?", registered.UserID).First(&user).Error; err != nil {
		t.Fatalf("user row not found: %v", err)
	}
	if user.APIKey != registered.APIKey {
		t.Error("stored API key differs from returned one")
	}

	var wallet types.Wallet
	if err := db.Where("user_id = ?", registered.UserID).First(&wallet).Error; err != nil {
		t.Fatalf("wallet row not found: %v", err)
	}
	if !wallet.Balance.Equal(opening) {
		t.Errorf("wallet balance = %s, want %s", wallet.Balance, opening)
	}
	if !wallet.TotalDeposited.IsZero() || !wallet.TotalWithdrawn.IsZero() {
		t.Error("opening balance counted as a deposit")
	}
}

func TestRegisteredUsersAreDistinct(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "users_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	service := NewService(db, config.Config{OpeningBalance: decimal.NewFromInt(1000)})

	first, err := service.Register()
	if err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	second, err := service.Register()
	if err != nil {
		t.Fatalf("second Register failed: %v", err)
	}

	if first.UserID == second.UserID || first.APIKey == second.APIKey {
		t.Error("registrations share identifiers")
	}
}
