package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/database/migrations"
	"github.com/brokersim/brokerage-api/internal/types"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Writers queue briefly instead of failing straight away when the store
	// is busy.
	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&types.User{},
		&types.Wallet{},
		&types.Holding{},
		&types.Order{},
		&types.LedgerEntry{},
		&types.Stock{},
		&types.Notification{},
	)
	if err != nil {
		return nil, err
	}

	if err := migrations.AddLedgerIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
