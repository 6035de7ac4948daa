package wallet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/config"
	"github.com/brokersim/brokerage-api/internal/notifications"
	"github.com/brokersim/brokerage-api/internal/types"
	"github.com/brokersim/brokerage-api/pkg/locks"
)

// Service is the wallet accessor: deposit and withdraw primitives sharing the
// engine's locking discipline, since they mutate the same invariant-bearing
// wallet row.
type Service struct {
	db       *Database
	notifier notifications.Notifier
	locks    *locks.Manager
	lockWait time.Duration
}

func NewService(gormDB *gorm.DB, notifier notifications.Notifier, lockManager *locks.Manager, cfg config.Config) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		notifier: notifier,
		locks:    lockManager,
		lockWait: cfg.LockWaitTimeout,
	}
}

// Deposit credits the wallet and appends a DEPOSIT ledger entry atomically.
func (s *Service) Deposit(userID string, amount decimal.Decimal, description string) (*types.LedgerEntry, error) {
	logger := log.With().
		Str("service", "wallet").
		Str("user_id", userID).
		Str("amount", amount.String()).
		Logger()

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &types.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	amount = amount.Round(2)
	if description == "" {
		description = "Deposit"
	}

	release, err := s.locks.Acquire(locks.WalletKey(userID), s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *types.LedgerEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txdb := s.db.WithTx(tx)
		now := time.Now()

		w, err := txdb.GetWallet(userID)
		if err != nil {
			return err
		}

		balanceBefore := w.Balance
		w.Balance = balanceBefore.Add(amount)
		w.TotalDeposited = w.TotalDeposited.Add(amount)
		w.LastUpdated = now
		if err := txdb.SaveWallet(w); err != nil {
			return err
		}

		entry = &types.LedgerEntry{
			EntryID:       uuid.New().String(),
			UserID:        userID,
			EntryType:     types.EntryTypeDeposit,
			Amount:        amount,
			BalanceBefore: balanceBefore,
			BalanceAfter:  w.Balance,
			Description:   description,
			CreatedAt:     now,
		}
		return txdb.CreateLedgerEntry(entry)
	})
	if err != nil {
		logger.Error().Err(err).Msg("deposit failed, rolled back")
		return nil, err
	}

	logger.Info().Str("balance_after", entry.BalanceAfter.StringFixed(2)).Msg("deposit completed")

	s.notifier.Notify(userID, notifications.TypeWallet, "Deposit received",
		fmt.Sprintf("Deposited %s, new balance %s", amount.StringFixed(2), entry.BalanceAfter.StringFixed(2)))

	return entry, nil
}

// Withdraw debits the wallet if funds suffice and appends a WITHDRAWAL ledger
// entry atomically. The balance check runs under the wallet lock, so N
// concurrent withdrawals can at most drain the balance to zero.
func (s *Service) Withdraw(userID string, amount decimal.Decimal, description string) (*types.LedgerEntry, error) {
	logger := log.With().
		Str("service", "wallet").
		Str("user_id", userID).
		Str("amount", amount.String()).
		Logger()

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &types.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	amount = amount.Round(2)
	if description == "" {
		description = "Withdrawal"
	}

	release, err := s.locks.Acquire(locks.WalletKey(userID), s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *types.LedgerEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txdb := s.db.WithTx(tx)
		now := time.Now()

		w, err := txdb.GetWallet(userID)
		if err != nil {
			return err
		}

		if w.Balance.LessThan(amount) {
			return &types.InsufficientFundsError{Required: amount, Available: w.Balance}
		}

		balanceBefore := w.Balance
		w.Balance = balanceBefore.Sub(amount)
		w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
		w.LastUpdated = now
		if err := txdb.SaveWallet(w); err != nil {
			return err
		}

		entry = &types.LedgerEntry{
			EntryID:       uuid.New().String(),
			UserID:        userID,
			EntryType:     types.EntryTypeWithdrawal,
			Amount:        amount.Neg(),
			BalanceBefore: balanceBefore,
			BalanceAfter:  w.Balance,
			Description:   description,
			CreatedAt:     now,
		}
		return txdb.CreateLedgerEntry(entry)
	})
	if err != nil {
		logger.Info().Err(err).Msg("withdrawal rejected")
		return nil, err
	}

	logger.Info().Str("balance_after", entry.BalanceAfter.StringFixed(2)).Msg("withdrawal completed")

	s.notifier.Notify(userID, notifications.TypeWallet, "Withdrawal processed",
		fmt.Sprintf("Withdrew %s, new balance %s", amount.StringFixed(2), entry.BalanceAfter.StringFixed(2)))

	return entry, nil
}

// GetWallet returns the user's wallet row.
func (s *Service) GetWallet(userID string) (*types.Wallet, error) {
	return s.db.GetWallet(userID)
}

// GetTransactions returns the user's ledger history.
func (s *Service) GetTransactions(userID string) ([]types.LedgerEntry, error) {
	return s.db.GetLedgerEntries(userID)
}
