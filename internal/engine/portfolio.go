package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/brokersim/brokerage-api/internal/types"
)

// GetPortfolio assembles the read-only portfolio view: cash balance plus each
// holding marked to the oracle's current price. No locks are taken.
func (s *Service) GetPortfolio(ctx context.Context, userID string) (*types.PortfolioResponse, error) {
	wallet, err := s.db.GetWallet(userID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.db.GetHoldingsForUser(userID)
	if err != nil {
		return nil, err
	}

	resp := &types.PortfolioResponse{
		UserID:      userID,
		CashBalance: wallet.Balance,
		Holdings:    make([]types.HoldingView, 0, len(holdings)),
		TotalValue:  wallet.Balance,
		AsOf:        time.Now(),
	}

	for _, h := range holdings {
		price, err := s.oracle.CurrentPrice(ctx, h.Symbol)
		if err != nil {
			// A quote outage must not break the portfolio view; fall back to
			// the position's cost basis.
			log.Warn().Err(err).Str("symbol", h.Symbol).Msg("price unavailable, valuing at cost")
			price = h.AveragePurchasePrice
		}

		marketValue := price.Mul(decimal.NewFromInt(h.Quantity)).Round(2)
		resp.Holdings = append(resp.Holdings, types.HoldingView{
			Symbol:               h.Symbol,
			Quantity:             h.Quantity,
			AveragePurchasePrice: h.AveragePurchasePrice,
			TotalInvested:        h.TotalInvested,
			CurrentPrice:         price,
			MarketValue:          marketValue,
			UnrealizedGainLoss:   marketValue.Sub(h.TotalInvested),
		})
		resp.TotalValue = resp.TotalValue.Add(marketValue)
	}

	return resp, nil
}
