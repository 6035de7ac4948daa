package engine

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

// WithTx returns a Database bound to the given transaction handle so the
// locked mutation phase reads and writes through one atomic unit.
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

func (d *Database) GetHolding(userID, symbol string) (*types.Holding, error) {
	var holding types.Holding
	if err := d.db.Where("user_id = ? AND symbol = ?", userID, symbol).First(&holding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &holding, nil
}

func (d *Database) GetHoldingsForUser(userID string) ([]types.Holding, error) {
	var holdings []types.Holding
	if err := d.db.Where("user_id = ?", userID).Order("symbol").Find(&holdings).Error; err != nil {
		return nil, err
	}
	return holdings, nil
}

func (d *Database) GetHoldingsBySymbol(symbol string) ([]types.Holding, error) {
	var holdings []types.Holding
	if err := d.db.Where("symbol = ?", symbol).Order("user_id").Find(&holdings).Error; err != nil {
		return nil, err
	}
	return holdings, nil
}

func (d *Database) CreateHolding(holding *types.Holding) error {
	return d.db.Create(holding).Error
}

func (d *Database) SaveHolding(holding *types.Holding) error {
	return d.db.Save(holding).Error
}

// DeleteHolding removes an exhausted position outright. The delete is
// unscoped: a soft-deleted row would still occupy the (user, symbol) unique
// index and block a later re-purchase.
func (d *Database) DeleteHolding(holding *types.Holding) error {
	return d.db.Unscoped().Delete(holding).Error
}

func (d *Database) CreateOrder(order *types.Order) error {
	return d.db.Create(order).Error
}

func (d *Database) SaveOrder(order *types.Order) error {
	return d.db.Save(order).Error
}

func (d *Database) GetOrder(orderID string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) GetOrderByOrderIDAndUserID(orderID, userID string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) GetOrdersForUser(userID string) ([]types.Order, error) {
	var orders []types.Order
	if err := d.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) CreateLedgerEntry(entry *types.LedgerEntry) error {
	return d.db.Create(entry).Error
}
