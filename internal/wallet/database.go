package wallet

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) WithTx(tx *gorm.DB) *Database {
	return &Database{db: tx}
}

func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}

func (d *Database) GetWallet(userID string) (*types.Wallet, error) {
	var wallet types.Wallet
	if err := d.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("wallet for user %s not found", userID)
		}
		return nil, err
	}
	return &wallet, nil
}

func (d *Database) SaveWallet(wallet *types.Wallet) error {
	return d.db.Save(wallet).Error
}

func (d *Database) CreateLedgerEntry(entry *types.LedgerEntry) error {
	return d.db.Create(entry).Error
}

// GetLedgerEntries returns a user's ledger history in insertion order, the
// order in which the balance_before/balance_after chain links up.
func (d *Database) GetLedgerEntries(userID string) ([]types.LedgerEntry, error) {
	var entries []types.LedgerEntry
	if err := d.db.Where("user_id = ?", userID).Order("id").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
