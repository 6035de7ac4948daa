package migrations

import (
	"gorm.io/gorm"
)

// AddLedgerIndexes creates the indexes the hot query paths rely on.
// Using raw SQL for index creation to have more control over index types.
func AddLedgerIndexes(db *gorm.DB) error {
	indexes := []string{
		// Ledger replay and history queries walk a user's entries in order
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_created
		 ON ledger_entries(user_id, created_at)`,

		// Order history filtered by status
		`CREATE INDEX IF NOT EXISTS idx_orders_user_status
		 ON orders(user_id, status)`,

		// Dividend distribution scans holders per symbol
		`CREATE INDEX IF NOT EXISTS idx_holdings_symbol
		 ON holdings(symbol)`,

		// Unread notification lookups
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_read
		 ON notifications(user_id, read)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
