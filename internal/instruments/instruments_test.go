package instruments

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/database"
	"github.com/brokersim/brokerage-api/internal/pricing"
	"github.com/brokersim/brokerage-api/internal/types"
)

func newTestResolver(t *testing.T) (*Resolver, *gorm.DB) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "instruments_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return NewResolver(db, pricing.NewSimulatedSource(1)), db
}

func TestResolveCreatesInstrumentOnFirstUse(t *testing.T) {
	resolver, db := newTestResolver(t)

	stock, err := resolver.Resolve(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if stock.Symbol != "AAPL" {
		t.Errorf("symbol = %s, want AAPL", stock.Symbol)
	}
	if !stock.Active {
		t.Error("lazily created instrument not active")
	}
	if stock.Name == "" || stock.Exchange == "" {
		t.Error("listing metadata not copied onto the instrument row")
	}

	var count int64
	if err := db.Model(&types.Stock{}).Where("symbol = ?", "AAPL").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("stock rows = %d, want 1", count)
	}

	// Second resolution hits the stored row, not the reference source.
	again, err := resolver.Resolve(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if again.ID != stock.ID {
		t.Error("second resolution created a new row")
	}
}

func TestResolveNormalizesSymbol(t *testing.T) {
	resolver, _ := newTestResolver(t)

	stock, err := resolver.Resolve(context.Background(), "  aapl ")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if stock.Symbol != "AAPL" {
		t.Errorf("symbol = %s, want AAPL", stock.Symbol)
	}
}

func TestResolveUnknownSymbol(t *testing.T) {
	resolver, _ := newTestResolver(t)

	for _, symbol := range []string{"NOPE", "", "   "} {
		_, err := resolver.Resolve(context.Background(), symbol)
		if !errors.Is(err, ErrUnknownSymbol) {
			t.Errorf("Resolve(%q): got %v, want ErrUnknownSymbol", symbol, err)
		}
	}
}

func TestResolveInactiveInstrument(t *testing.T) {
	resolver, db := newTestResolver(t)

	delisted := &types.Stock{Symbol: "GONE", Name: "Delisted Corp", Exchange: "NYSE", Active: false}
	if err := db.Create(delisted).Error; err != nil {
		t.Fatalf("failed to seed stock: %v", err)
	}

	_, err := resolver.Resolve(context.Background(), "GONE")
	if !errors.Is(err, ErrNotTradable) {
		t.Errorf("got %v, want ErrNotTradable", err)
	}
}

func TestRecordPrice(t *testing.T) {
	resolver, db := newTestResolver(t)

	if _, err := resolver.Resolve(context.Background(), "MSFT"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	price := decimal.NewFromFloat(415.1234)
	resolver.RecordPrice("msft", price)

	var stock types.Stock
	if err := db.Where("symbol = ?", "MSFT").First(&stock).Error; err != nil {
		t.Fatalf("failed to load stock: %v", err)
	}
	if !stock.LastPrice.Equal(price) {
		t.Errorf("last price = %s, want %s", stock.LastPrice, price)
	}
	if stock.LastPriceAt.IsZero() || time.Since(stock.LastPriceAt) > time.Minute {
		t.Errorf("last price timestamp not updated: %v", stock.LastPriceAt)
	}
}
