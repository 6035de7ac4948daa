package instruments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetStock(symbol string) (*types.Stock, error) {
	var stock types.Stock
	if err := d.db.Where("symbol = ?", symbol).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

func (d *Database) CreateStock(stock *types.Stock) error {
	if err := d.db.Create(stock).Error; err != nil {
		// A concurrent resolution may have created the row first; treat the
		// existing row as the result.
		var existing types.Stock
		if lookupErr := d.db.Where("symbol = ?", stock.Symbol).First(&existing).Error; lookupErr == nil {
			*stock = existing
			return nil
		}
		return err
	}
	return nil
}

func (d *Database) UpdateLastPrice(symbol string, price decimal.Decimal, at time.Time) error {
	return d.db.Model(&types.Stock{}).
		Where("symbol = ?", symbol).
		Updates(map[string]interface{}{
			"last_price":    price,
			"last_price_at": at,
		}).Error
}
