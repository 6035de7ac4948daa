package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownSymbol means the source has no listing for the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUnavailable means the source could not produce a price at all.
	ErrUnavailable = errors.New("price source unavailable")
)

// Oracle returns a current price for a symbol. The engine treats it as a
// black box: prices are fetched before any account lock is taken, and the
// snapshot obtained is what gets persisted on the order.
type Oracle interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Listing is the reference data a source knows about a tradable instrument.
type Listing struct {
	Symbol   string
	Name     string
	Exchange string
}

// ReferenceSource describes instruments so unknown symbols can be lazily
// registered on first use.
type ReferenceSource interface {
	Describe(ctx context.Context, symbol string) (Listing, error)
}
