package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingView is a holding enriched with a current market price
type HoldingView struct {
	Symbol               string          `json:"symbol"`
	Quantity             int64           `json:"quantity"`
	AveragePurchasePrice decimal.Decimal `json:"average_purchase_price"`
	TotalInvested        decimal.Decimal `json:"total_invested"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	MarketValue          decimal.Decimal `json:"market_value"`
	UnrealizedGainLoss   decimal.Decimal `json:"unrealized_gain_loss"`
}

// PortfolioResponse represents the full portfolio view for a user
type PortfolioResponse struct {
	UserID      string          `json:"user_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Holdings    []HoldingView   `json:"holdings"`
	TotalValue  decimal.Decimal `json:"total_value"`
	AsOf        time.Time       `json:"as_of"`
}

// DividendPayment represents a single credit from a dividend distribution
type DividendPayment struct {
	UserID   string          `json:"user_id"`
	Quantity int64           `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// DividendDistributionResponse summarises a per-share dividend run
type DividendDistributionResponse struct {
	Symbol        string            `json:"symbol"`
	PerShare      decimal.Decimal   `json:"per_share"`
	HoldersPaid   int               `json:"holders_paid"`
	TotalPaid     decimal.Decimal   `json:"total_paid"`
	Payments      []DividendPayment `json:"payments"`
	DistributedAt time.Time         `json:"distributed_at"`
}
