package instruments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/pricing"
	"github.com/brokersim/brokerage-api/internal/types"
)

var (
	// ErrUnknownSymbol means no listing exists anywhere for the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrNotTradable means the instrument exists but is not active.
	ErrNotTradable = errors.New("instrument is not tradable")
)

// Resolver maps symbols to Stock rows, lazily creating the row from the
// reference source on first use. A reference-source outage is reported as an
// unavailability error, distinct from an unknown symbol.
type Resolver struct {
	db     *Database
	source pricing.ReferenceSource
}

func NewResolver(gormDB *gorm.DB, source pricing.ReferenceSource) *Resolver {
	return &Resolver{
		db:     NewDatabase(gormDB),
		source: source,
	}
}

func (r *Resolver) Resolve(ctx context.Context, symbol string) (*types.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrUnknownSymbol
	}

	stock, err := r.db.GetStock(symbol)
	if err != nil {
		return nil, err
	}
	if stock != nil {
		if !stock.Active {
			return nil, ErrNotTradable
		}
		return stock, nil
	}

	listing, err := r.source.Describe(ctx, symbol)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownSymbol) {
			return nil, ErrUnknownSymbol
		}
		return nil, fmt.Errorf("reference lookup for %s: %w", symbol, err)
	}

	stock = &types.Stock{
		Symbol:   listing.Symbol,
		Name:     listing.Name,
		Exchange: listing.Exchange,
		Active:   true,
	}
	if err := r.db.CreateStock(stock); err != nil {
		return nil, err
	}

	log.Info().
		Str("symbol", stock.Symbol).
		Str("name", stock.Name).
		Str("exchange", stock.Exchange).
		Msg("registered new instrument")

	return stock, nil
}

// RecordPrice updates the cached last-traded price on the instrument row.
// Best effort, a failure here never affects the caller's operation.
func (r *Resolver) RecordPrice(symbol string, price decimal.Decimal) {
	if err := r.db.UpdateLastPrice(strings.ToUpper(symbol), price, time.Now()); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to record last price")
	}
}
