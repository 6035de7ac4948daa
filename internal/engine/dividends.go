package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/notifications"
	"github.com/brokersim/brokerage-api/internal/types"
	"github.com/brokersim/brokerage-api/pkg/locks"
)

// DistributeDividend credits perShare (up to 4 decimal places) for every share
// of symbol held, one wallet at a time under that user's wallet lock. Holders
// whose wallet cannot be credited are skipped and logged; the rest of the run
// continues.
func (s *Service) DistributeDividend(ctx context.Context, symbol string, perShare decimal.Decimal) (*types.DividendDistributionResponse, error) {
	logger := log.With().
		Str("service", "engine").
		Str("symbol", symbol).
		Str("per_share", perShare.String()).
		Logger()

	if perShare.LessThanOrEqual(decimal.Zero) {
		return nil, &types.ValidationError{Field: "per_share", Reason: "must be positive"}
	}
	perShare = perShare.Round(4)

	stock, err := s.resolveInstrument(ctx, symbol)
	if err != nil {
		return nil, err
	}

	holders, err := s.db.GetHoldingsBySymbol(stock.Symbol)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("holders", len(holders)).Msg("starting dividend distribution")

	resp := &types.DividendDistributionResponse{
		Symbol:        stock.Symbol,
		PerShare:      perShare,
		TotalPaid:     decimal.Zero,
		DistributedAt: time.Now(),
	}

	for _, holding := range holders {
		amount := perShare.Mul(decimal.NewFromInt(holding.Quantity)).Round(2)
		if err := s.creditDividend(holding.UserID, stock.Symbol, holding.Quantity, amount); err != nil {
			logger.Error().
				Err(err).
				Str("user_id", holding.UserID).
				Msg("dividend credit failed, holder skipped")
			continue
		}

		resp.Payments = append(resp.Payments, types.DividendPayment{
			UserID:   holding.UserID,
			Quantity: holding.Quantity,
			Amount:   amount,
		})
		resp.HoldersPaid++
		resp.TotalPaid = resp.TotalPaid.Add(amount)

		s.notifier.Notify(holding.UserID, notifications.TypeDividend, "Dividend received",
			fmt.Sprintf("Dividend of %s on %d %s (%s per share)",
				amount.StringFixed(2), holding.Quantity, stock.Symbol, perShare.StringFixed(4)))
	}

	logger.Info().
		Int("holders_paid", resp.HoldersPaid).
		Str("total_paid", resp.TotalPaid.StringFixed(2)).
		Msg("dividend distribution completed")

	return resp, nil
}

// creditDividend mutates one wallet under the same lock discipline as order
// execution, since it touches the same invariant-bearing row.
func (s *Service) creditDividend(userID, symbol string, quantity int64, amount decimal.Decimal) error {
	release, err := s.locks.Acquire(locks.WalletKey(userID), s.lockWait)
	if err != nil {
		return err
	}
	defer release()

	return s.db.Transaction(func(tx *gorm.DB) error {
		txdb := s.db.WithTx(tx)
		now := time.Now()

		w, err := txdb.GetWallet(userID)
		if err != nil {
			return err
		}

		balanceBefore := w.Balance
		w.Balance = balanceBefore.Add(amount)
		w.LastUpdated = now
		if err := txdb.SaveWallet(w); err != nil {
			return err
		}

		entry := &types.LedgerEntry{
			EntryID:       uuid.New().String(),
			UserID:        userID,
			EntryType:     types.EntryTypeDividend,
			Symbol:        symbol,
			Amount:        amount,
			BalanceBefore: balanceBefore,
			BalanceAfter:  w.Balance,
			Description:   fmt.Sprintf("Dividend on %d %s", quantity, symbol),
			CreatedAt:     now,
		}
		return txdb.CreateLedgerEntry(entry)
	})
}
