package types

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order lifecycle. CANCELLED is reserved in the schema; no execution path
// produces it.
const (
	OrderTypeBuy  = "BUY"
	OrderTypeSell = "SELL"

	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusFailed    = "FAILED"
	OrderStatusCancelled = "CANCELLED"
)

// Ledger entry types. Amounts are signed: negative for debits, positive for
// credits.
const (
	EntryTypeBuy        = "BUY"
	EntryTypeSell       = "SELL"
	EntryTypeDividend   = "DIVIDEND"
	EntryTypeDeposit    = "DEPOSIT"
	EntryTypeWithdrawal = "WITHDRAWAL"
	EntryTypeFee        = "FEE"
)

type User struct {
	gorm.Model `json:"-"`
	UserID     string    `gorm:"uniqueIndex" json:"user_id"`
	APIKey     string    `gorm:"uniqueIndex" json:"api_key"`
	APISecret  string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Wallet is one per user. Balance is a materialized view of the ledger; the
// check constraint is defense in depth behind the engine's own validation.
type Wallet struct {
	gorm.Model     `json:"-"`
	UserID         string          `gorm:"uniqueIndex" json:"user_id"`
	Balance        decimal.Decimal `gorm:"type:numeric(18,2);check:balance >= 0" json:"balance"`
	TotalDeposited decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_deposited"`
	TotalWithdrawn decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_withdrawn"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// Holding is at most one per (user, symbol). A holding that reaches zero
// quantity is deleted, never kept at zero.
type Holding struct {
	gorm.Model           `json:"-"`
	UserID               string          `gorm:"uniqueIndex:idx_holdings_user_symbol" json:"user_id"`
	Symbol               string          `gorm:"uniqueIndex:idx_holdings_user_symbol" json:"symbol"`
	Quantity             int64           `gorm:"check:quantity > 0" json:"quantity"`
	AveragePurchasePrice decimal.Decimal `gorm:"type:numeric(18,4)" json:"average_purchase_price"`
	TotalInvested        decimal.Decimal `gorm:"type:numeric(18,2)" json:"total_invested"`
	FirstPurchaseDate    time.Time       `json:"first_purchase_date"`
	LastUpdated          time.Time       `json:"last_updated"`
}

// Order is one row per attempt, terminal states immutable. Every attempt is an
// audit record whether it completed or failed.
type Order struct {
	gorm.Model       `json:"-"`
	OrderID          string              `gorm:"uniqueIndex" json:"order_id"`
	UserID           string              `gorm:"index" json:"user_id"`
	Symbol           string              `json:"symbol"`
	OrderType        string              `json:"order_type"` // BUY or SELL
	Quantity         int64               `json:"quantity"`
	PricePerShare    decimal.Decimal     `gorm:"type:numeric(18,4)" json:"price_per_share"`
	CommissionFee    decimal.Decimal     `gorm:"type:numeric(18,2)" json:"commission_fee"`
	TotalAmount      decimal.Decimal     `gorm:"type:numeric(18,2)" json:"total_amount"`
	Status           string              `json:"status"` // PENDING, COMPLETED, FAILED, CANCELLED
	FailureReason    string              `json:"failure_reason,omitempty"`
	RealizedGainLoss decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"realized_gain_loss,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	ExecutedAt       *time.Time          `json:"executed_at,omitempty"`
}

// LedgerEntry is append-only: no update, no delete. Replaying a user's entries
// in order against the opening balance reproduces the wallet balance exactly.
type LedgerEntry struct {
	gorm.Model    `json:"-"`
	EntryID       string          `gorm:"uniqueIndex" json:"entry_id"`
	UserID        string          `gorm:"index" json:"user_id"`
	EntryType     string          `json:"entry_type"` // BUY, SELL, DIVIDEND, DEPOSIT, WITHDRAWAL, FEE
	OrderID       string          `json:"order_id,omitempty"`
	Symbol        string          `json:"symbol,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(18,2)" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(18,2)" json:"balance_after"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Stock is a tradable instrument, lazily created on first resolution.
type Stock struct {
	gorm.Model  `json:"-"`
	Symbol      string          `gorm:"uniqueIndex" json:"symbol"`
	Name        string          `json:"name"`
	Exchange    string          `json:"exchange"`
	Active      bool            `json:"active"`
	LastPrice   decimal.Decimal `gorm:"type:numeric(18,4)" json:"last_price"`
	LastPriceAt time.Time       `json:"last_price_at"`
}

type Notification struct {
	gorm.Model `json:"-"`
	UserID     string    `gorm:"index" json:"user_id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
