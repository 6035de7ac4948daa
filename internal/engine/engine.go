package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/config"
	"github.com/brokersim/brokerage-api/internal/instruments"
	"github.com/brokersim/brokerage-api/internal/notifications"
	"github.com/brokersim/brokerage-api/internal/pricing"
	"github.com/brokersim/brokerage-api/internal/types"
	"github.com/brokersim/brokerage-api/pkg/locks"
)

// Service is the transaction engine. It turns an order request into a durable,
// consistent mutation of wallet balance, holdings and the transaction ledger.
// Collaborators are injected once at construction and shared across requests.
type Service struct {
	db          *Database
	oracle      pricing.Oracle
	resolver    *instruments.Resolver
	notifier    notifications.Notifier
	locks       *locks.Manager
	commission  Calculator
	maxOrderQty int64
	lockWait    time.Duration
}

func NewService(
	gormDB *gorm.DB,
	oracle pricing.Oracle,
	resolver *instruments.Resolver,
	notifier notifications.Notifier,
	lockManager *locks.Manager,
	cfg config.Config,
) *Service {
	return &Service{
		db:          NewDatabase(gormDB),
		oracle:      oracle,
		resolver:    resolver,
		notifier:    notifier,
		locks:       lockManager,
		commission:  NewCalculator(cfg.CommissionRate),
		maxOrderQty: cfg.MaxOrderQuantity,
		lockWait:    cfg.LockWaitTimeout,
	}
}

// CreateBuyOrder executes a buy at the current market price.
//
// Business-rule failures (insufficient funds, lost races, lock timeouts) are
// not errors: the order is persisted with status FAILED and a reason, and
// returned with a nil error. Only malformed input and external lookup
// failures surface as errors, before any row is written.
func (s *Service) CreateBuyOrder(ctx context.Context, userID, symbol string, quantity int64) (*types.Order, error) {
	logger := log.With().
		Str("service", "engine").
		Str("user_id", userID).
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Str("side", types.OrderTypeBuy).
		Logger()

	if err := s.validateQuantity(quantity); err != nil {
		return nil, err
	}

	stock, err := s.resolveInstrument(ctx, symbol)
	if err != nil {
		return nil, err
	}

	// Price is fetched before any lock is taken so a slow source cannot block
	// unrelated operations. The snapshot obtained here is what gets persisted.
	price, err := s.fetchPrice(ctx, stock.Symbol)
	if err != nil {
		return nil, err
	}

	subtotal := price.Mul(decimal.NewFromInt(quantity)).Round(2)
	fee := s.commission.Fee(subtotal)
	total := subtotal.Add(fee)

	order := &types.Order{
		OrderID:       uuid.New().String(),
		UserID:        userID,
		Symbol:        stock.Symbol,
		OrderType:     types.OrderTypeBuy,
		Quantity:      quantity,
		PricePerShare: price,
		CommissionFee: fee,
		TotalAmount:   total,
		Status:        types.OrderStatusPending,
		CreatedAt:     time.Now(),
	}
	if err := s.db.CreateOrder(order); err != nil {
		return nil, err
	}

	logger = logger.With().Str("order_id", order.OrderID).Logger()
	logger.Info().
		Str("price", price.String()).
		Str("total", total.StringFixed(2)).
		Msg("buy order created, starting execution")

	// Fast-path validation, unlocked. Re-run under lock below because the
	// balance may change between here and lock acquisition.
	wallet, err := s.db.GetWallet(userID)
	if err != nil {
		s.failOrder(order, "wallet not found", logger)
		return order, nil
	}
	if wallet.Balance.LessThan(total) {
		reason := (&types.InsufficientFundsError{Required: total, Available: wallet.Balance}).Error()
		s.failOrder(order, reason, logger)
		return order, nil
	}

	releaseWallet, err := s.locks.Acquire(locks.WalletKey(userID), s.lockWait)
	if err != nil {
		s.failOrder(order, "account busy, please retry", logger)
		return order, nil
	}
	defer releaseWallet()

	releaseHolding, err := s.locks.Acquire(locks.HoldingKey(userID, stock.Symbol), s.lockWait)
	if err != nil {
		s.failOrder(order, "account busy, please retry", logger)
		return order, nil
	}
	defer releaseHolding()

	execErr := s.db.Transaction(func(tx *gorm.DB) error {
		txdb := s.db.WithTx(tx)
		now := time.Now()

		w, err := txdb.GetWallet(userID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(total) {
			return &types.InsufficientFundsError{Required: total, Available: w.Balance}
		}

		balanceBefore := w.Balance
		afterPrincipal := balanceBefore.Sub(subtotal)
		w.Balance = balanceBefore.Sub(total)
		w.LastUpdated = now
		if err := txdb.SaveWallet(w); err != nil {
			return err
		}

		holding, err := txdb.GetHolding(userID, stock.Symbol)
		if err != nil {
			return err
		}
		if holding == nil {
			holding = &types.Holding{
				UserID:               userID,
				Symbol:               stock.Symbol,
				Quantity:             quantity,
				AveragePurchasePrice: price.Round(4),
				TotalInvested:        subtotal,
				FirstPurchaseDate:    now,
				LastUpdated:          now,
			}
			if err := txdb.CreateHolding(holding); err != nil {
				return err
			}
		} else {
			newQuantity := holding.Quantity + quantity
			newInvested := holding.TotalInvested.Add(subtotal)
			holding.AveragePurchasePrice = newInvested.DivRound(decimal.NewFromInt(newQuantity), 4)
			holding.Quantity = newQuantity
			holding.TotalInvested = newInvested
			holding.LastUpdated = now
			if err := txdb.SaveHolding(holding); err != nil {
				return err
			}
		}

		principal := &types.LedgerEntry{
			EntryID:       uuid.New().String(),
			UserID:        userID,
			EntryType:     types.EntryTypeBuy,
			OrderID:       order.OrderID,
			Symbol:        stock.Symbol,
			Amount:        subtotal.Neg(),
			BalanceBefore: balanceBefore,
			BalanceAfter:  afterPrincipal,
			Description:   fmt.Sprintf("Buy %d %s @ %s", quantity, stock.Symbol, price.StringFixed(2)),
			CreatedAt:     now,
		}
		if err := txdb.CreateLedgerEntry(principal); err != nil {
			return err
		}

		feeEntry := &types.LedgerEntry{
			EntryID:       uuid.New().String(),
			UserID:        userID,
			EntryType:     types.EntryTypeFee,
			OrderID:       order.OrderID,
			Symbol:        stock.Symbol,
			Amount:        fee.Neg(),
			BalanceBefore: afterPrincipal,
			BalanceAfter:  w.Balance,
			Description:   fmt.Sprintf("Commission on order %s", order.OrderID),
			CreatedAt:     now,
		}
		if err := txdb.CreateLedgerEntry(feeEntry); err != nil {
			return err
		}

		order.Status = types.OrderStatusCompleted
		order.ExecutedAt = &now
		return txdb.SaveOrder(order)
	})

	if execErr != nil {
		var insufficientFunds *types.InsufficientFundsError
		if errors.As(execErr, &insufficientFunds) {
			s.failOrder(order, insufficientFunds.Error(), logger)
			return order, nil
		}
		logger.Error().Err(execErr).Msg("buy execution failed, all writes rolled back")
		s.failOrder(order, "internal error during order execution", logger)
		return order, nil
	}

	s.resolver.RecordPrice(stock.Symbol, price)

	logger.Info().
		Str("total", total.StringFixed(2)).
		Msg("buy order completed")

	s.notifier.Notify(userID, notifications.TypeOrderCompleted, "Order completed",
		fmt.Sprintf("Bought %d %s @ %s for a total of %s (fee %s)",
			quantity, stock.Symbol, price.StringFixed(2), total.StringFixed(2), fee.StringFixed(2)))

	return order, nil
}

// CreateSellOrder executes a sell at the current market price, computing the
// realized gain or loss against the holding's weighted average cost basis.
func (s *Service) CreateSellOrder(ctx context.Context, userID, symbol string, quantity int64) (*types.Order, error) {
	logger := log.With().
		Str("service", "engine").
		Str("user_id", userID).
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Str("side", types.OrderTypeSell).
		Logger()

	if err := s.validateQuantity(quantity); err != nil {
		return nil, err
	}

	stock, err := s.resolveInstrument(ctx, symbol)
	if err != nil {
		return nil, err
	}

	price, err := s.fetchPrice(ctx, stock.Symbol)
	if err != nil {
		return nil, err
	}

	gross := price.Mul(decimal.NewFromInt(quantity)).Round(2)
	fee := s.commission.Fee(gross)
	net := gross.Sub(fee)

	order := &types.Order{
		OrderID:       uuid.New().String(),
		UserID:        userID,
		Symbol:        stock.Symbol,
		OrderType:     types.OrderTypeSell,
		Quantity:      quantity,
		PricePerShare: price,
		CommissionFee: fee,
		TotalAmount:   net,
		Status:        types.OrderStatusPending,
		CreatedAt:     time.Now(),
	}
	if err := s.db.CreateOrder(order); err != nil {
		return nil, err
	}

	logger = logger.With().Str("order_id", order.OrderID).Logger()
	logger.Info().
		Str("price", price.String()).
		Str("net_proceeds", net.StringFixed(2)).
		Msg("sell order created, starting execution")

	// Fast-path validation, unlocked.
	holding, err := s.db.GetHolding(userID, stock.Symbol)
	if err != nil {
		s.failOrder(order, "internal error during order execution", logger)
		return order, nil
	}
	if holding == nil || holding.Quantity < quantity {
		var owned int64
		if holding != nil {
			owned = holding.Quantity
		}
		reason := (&types.InsufficientSharesError{Symbol: stock.Symbol, Owned: owned, Requested: quantity}).Error()
		s.failOrder(order, reason, logger)
		return order, nil
	}

	releaseWallet, err := s.locks.Acquire(locks.WalletKey(userID), s.lockWait)
	if err != nil {
		s.failOrder(order, "account busy, please retry", logger)
		return order, nil
	}
	defer releaseWallet()

	releaseHolding, err := s.locks.Acquire(locks.HoldingKey(userID, stock.Symbol), s.lockWait)
	if err != nil {
		s.failOrder(order, "account busy, please retry", logger)
		return order, nil
	}
	defer releaseHolding()

	var realized decimal.Decimal

	execErr := s.db.Transaction(func(tx *gorm.DB) error {
		txdb := s.db.WithTx(tx)
		now := time.Now()

		h, err := txdb.GetHolding(userID, stock.Symbol)
		if err != nil {
			return err
		}
		if h == nil || h.Quantity < quantity {
			var owned int64
			if h != nil {
				owned = h.Quantity
			}
			return &types.InsufficientSharesError{Symbol: stock.Symbol, Owned: owned, Requested: quantity}
		}

		w, err := txdb.GetWallet(userID)
		if err != nil {
			return err
		}

		costBasis := h.AveragePurchasePrice.Mul(decimal.NewFromInt(quantity)).Round(2)
		realized = gross.Sub(costBasis)

		balanceBefore := w.Balance
		afterGross := balanceBefore.Add(gross)
		w.Balance = balanceBefore.Add(net)
		w.LastUpdated = now
		if err := txdb.SaveWallet(w); err != nil {
			return err
		}

		h.Quantity -= quantity
		h.TotalInvested = h.TotalInvested.Sub(costBasis)
		h.LastUpdated = now
		if h.Quantity == 0 {
			// Exhausted positions are removed, never kept at zero.
			if err := txdb.DeleteHolding(h); err != nil {
				return err
			}
		} else {
			// Selling does not change the cost basis of the remaining shares.
			if err := txdb.SaveHolding(h); err != nil {
				return err
			}
		}

		proceeds := &types.LedgerEntry{
			EntryID:       uuid.New().String(),
			UserID:        userID,
			EntryType:     types.EntryTypeSell,
			OrderID:       order.OrderID,
			Symbol:        stock.Symbol,
			Amount:        gross,
			BalanceBefore: balanceBefore,
			BalanceAfter:  afterGross,
			Description:   fmt.Sprintf("Sell %d %s @ %s", quantity, stock.Symbol, price.StringFixed(2)),
			CreatedAt:     now,
		}
		if err := txdb.CreateLedgerEntry(proceeds); err != nil {
			return err
		}

		feeEntry := &types.LedgerEntry{
			EntryID:       uuid.New().String(),
			UserID:        userID,
			EntryType:     types.EntryTypeFee,
			OrderID:       order.OrderID,
			Symbol:        stock.Symbol,
			Amount:        fee.Neg(),
			BalanceBefore: afterGross,
			BalanceAfter:  w.Balance,
			Description:   fmt.Sprintf("Commission on order %s", order.OrderID),
			CreatedAt:     now,
		}
		if err := txdb.CreateLedgerEntry(feeEntry); err != nil {
			return err
		}

		order.Status = types.OrderStatusCompleted
		order.ExecutedAt = &now
		order.RealizedGainLoss = decimal.NewNullDecimal(realized)
		return txdb.SaveOrder(order)
	})

	if execErr != nil {
		var insufficientShares *types.InsufficientSharesError
		if errors.As(execErr, &insufficientShares) {
			s.failOrder(order, insufficientShares.Error(), logger)
			return order, nil
		}
		logger.Error().Err(execErr).Msg("sell execution failed, all writes rolled back")
		s.failOrder(order, "internal error during order execution", logger)
		return order, nil
	}

	s.resolver.RecordPrice(stock.Symbol, price)

	logger.Info().
		Str("realized_gain_loss", realized.StringFixed(2)).
		Str("net_proceeds", net.StringFixed(2)).
		Msg("sell order completed")

	s.notifier.Notify(userID, notifications.TypeOrderCompleted, "Order completed",
		fmt.Sprintf("Sold %d %s @ %s for net proceeds of %s (realized %s)",
			quantity, stock.Symbol, price.StringFixed(2), net.StringFixed(2), realized.StringFixed(2)))

	return order, nil
}

// GetOrder returns an order owned by the given user, or nil if none matches.
func (s *Service) GetOrder(orderID, userID string) (*types.Order, error) {
	return s.db.GetOrderByOrderIDAndUserID(orderID, userID)
}

// GetOrdersForUser returns the user's order history, newest first.
func (s *Service) GetOrdersForUser(userID string) ([]types.Order, error) {
	return s.db.GetOrdersForUser(userID)
}

func (s *Service) validateQuantity(quantity int64) error {
	if quantity <= 0 {
		return &types.ValidationError{Field: "quantity", Reason: "must be a positive integer"}
	}
	if quantity > s.maxOrderQty {
		return &types.ValidationError{Field: "quantity", Reason: fmt.Sprintf("exceeds maximum of %d", s.maxOrderQty)}
	}
	return nil
}

func (s *Service) resolveInstrument(ctx context.Context, symbol string) (*types.Stock, error) {
	stock, err := s.resolver.Resolve(ctx, symbol)
	if err != nil {
		switch {
		case errors.Is(err, instruments.ErrUnknownSymbol):
			return nil, &types.ValidationError{Field: "symbol", Reason: "unknown symbol"}
		case errors.Is(err, instruments.ErrNotTradable):
			return nil, &types.ValidationError{Field: "symbol", Reason: "instrument is not tradable"}
		default:
			return nil, &types.ExternalError{Op: "instrument lookup", Err: err}
		}
	}
	return stock, nil
}

func (s *Service) fetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := s.oracle.CurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, &types.ExternalError{Op: "price lookup", Err: err}
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, &types.ExternalError{Op: "price lookup", Err: fmt.Errorf("non-positive price %s for %s", price, symbol)}
	}
	return price, nil
}

// failOrder records a terminal FAILED state for the order. The order row is
// never lost: the audit trail always has a terminal record for every attempt.
func (s *Service) failOrder(order *types.Order, reason string, logger zerolog.Logger) {
	order.Status = types.OrderStatusFailed
	order.FailureReason = reason
	order.ExecutedAt = nil
	order.RealizedGainLoss = decimal.NullDecimal{}

	if err := s.db.SaveOrder(order); err != nil {
		logger.Error().Err(err).Msg("failed to persist FAILED order state")
	}

	logger.Info().Str("reason", reason).Msg("order failed")

	s.notifier.Notify(order.UserID, notifications.TypeOrderFailed, "Order failed",
		fmt.Sprintf("%s order for %d %s failed: %s", order.OrderType, order.Quantity, order.Symbol, reason))
}
