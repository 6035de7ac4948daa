package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabasePath     string          `env:"DATABASE_PATH" envDefault:"brokerage.db"`
	Port             string          `env:"PORT" envDefault:"8080"`
	JWTSecret        string          `env:"JWT_SECRET" envDefault:"brokerage-secret-key"`
	CommissionRate   decimal.Decimal `env:"COMMISSION_RATE" envDefault:"0.001"`
	OpeningBalance   decimal.Decimal `env:"OPENING_BALANCE" envDefault:"100000.00"`
	MaxOrderQuantity int64           `env:"MAX_ORDER_QUANTITY" envDefault:"100000"`
	PriceCacheTTL    time.Duration   `env:"PRICE_CACHE_TTL" envDefault:"15m"`
	LockWaitTimeout  time.Duration   `env:"LOCK_WAIT_TIMEOUT" envDefault:"5s"`
}

func Load() (Config, error) {
	var cfg Config
	return cfg, env.Parse(&cfg)
}
