package pricing

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"
)

// CachedOracle wraps an Oracle with a TTL cache. The cache is a process-local
// optimization, not a correctness requirement: misses fall through to the
// underlying source.
type CachedOracle struct {
	src   Oracle
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCachedOracle(src Oracle, ttl time.Duration) (*CachedOracle, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedOracle{src: src, cache: c, ttl: ttl}, nil
}

func (o *CachedOracle) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if v, ok := o.cache.Get(symbol); ok {
		return v.(decimal.Decimal), nil
	}

	price, err := o.src.CurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	o.cache.SetWithTTL(symbol, price, 1, o.ttl)
	return price, nil
}

// Wait flushes pending cache writes. Used by tests.
func (o *CachedOracle) Wait() { o.cache.Wait() }
