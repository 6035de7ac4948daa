package pricing

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type simulatedListing struct {
	Name      string
	Exchange  string
	BasePrice decimal.Decimal
}

// SimulatedSource is a mock market-data feed. Each call returns the last
// price moved by a small random variance, the way a quiet market drifts.
// It doubles as the reference source for instrument resolution.
type SimulatedSource struct {
	mu       sync.Mutex
	listings map[string]*simulatedListing
	last     map[string]decimal.Decimal
	rng      *rand.Rand
}

func NewSimulatedSource(seed int64) *SimulatedSource {
	listings := map[string]*simulatedListing{
		"AAPL": {Name: "Apple Inc.", Exchange: "NASDAQ", BasePrice: decimal.NewFromFloat(178.50)},
		"MSFT": {Name: "Microsoft Corporation", Exchange: "NASDAQ", BasePrice: decimal.NewFromFloat(415.20)},
		"GOOG": {Name: "Alphabet Inc.", Exchange: "NASDAQ", BasePrice: decimal.NewFromFloat(162.75)},
		"AMZN": {Name: "Amazon.com Inc.", Exchange: "NASDAQ", BasePrice: decimal.NewFromFloat(185.40)},
		"NVDA": {Name: "NVIDIA Corporation", Exchange: "NASDAQ", BasePrice: decimal.NewFromFloat(120.90)},
		"TSLA": {Name: "Tesla Inc.", Exchange: "NASDAQ", BasePrice: decimal.NewFromFloat(245.60)},
		"JPM":  {Name: "JPMorgan Chase & Co.", Exchange: "NYSE", BasePrice: decimal.NewFromFloat(205.30)},
		"KO":   {Name: "The Coca-Cola Company", Exchange: "NYSE", BasePrice: decimal.NewFromFloat(62.15)},
	}
	return &SimulatedSource{
		listings: listings,
		last:     make(map[string]decimal.Decimal),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// CurrentPrice returns the listing's last price with a random variance of up
// to ±1% applied, rounded to 4 decimal places.
func (s *SimulatedSource) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[symbol]
	if !ok {
		return decimal.Zero, ErrUnknownSymbol
	}

	prev, ok := s.last[symbol]
	if !ok {
		prev = listing.BasePrice
	}

	variance := decimal.NewFromFloat(1 + (s.rng.Float64()*0.02 - 0.01))
	price := prev.Mul(variance).Round(4)
	if price.LessThanOrEqual(decimal.Zero) {
		price = listing.BasePrice
	}
	s.last[symbol] = price

	log.Debug().
		Str("symbol", symbol).
		Str("price", price.String()).
		Msg("simulated price tick")

	return price, nil
}

// Describe implements ReferenceSource.
func (s *SimulatedSource) Describe(_ context.Context, symbol string) (Listing, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[symbol]
	if !ok {
		return Listing{}, ErrUnknownSymbol
	}
	return Listing{Symbol: symbol, Name: listing.Name, Exchange: listing.Exchange}, nil
}

// AddListing registers an extra instrument, mainly for tests and simulations.
func (s *SimulatedSource) AddListing(symbol, name, exchange string, basePrice decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[strings.ToUpper(symbol)] = &simulatedListing{Name: name, Exchange: exchange, BasePrice: basePrice}
}
