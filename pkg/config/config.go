package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/promo-engine/pkg/currency"
)

const (
	EnvPrefix  = "PROMOENGINE"
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App        AppConfig
	Redis      RedisConfig
	Allocation AllocationConfig
	Currency   CurrencyConfig
	CORS       CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := cfg.Allocation.Epsilon(); err != nil {
		return nil, err
	}
	if _, err := cfg.Currency.Overrides(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PROMOENGINE_APP_ENV" required:"true"`
	Port         string `envconfig:"PROMOENGINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PROMOENGINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROMOENGINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"PROMOENGINE_REDIS_URL"`
	Address      string        `envconfig:"PROMOENGINE_REDIS_ADDR"`
	Password     string        `envconfig:"PROMOENGINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROMOENGINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROMOENGINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROMOENGINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROMOENGINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROMOENGINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROMOENGINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AllocationConfig tunes the engine and the quote cache around it.
type AllocationConfig struct {
	// RoundingEpsilon is a fraction of one minor unit; reconciliation
	// shortfalls below it are treated as representation noise.
	RoundingEpsilon string        `envconfig:"PROMOENGINE_ALLOCATION_ROUNDING_EPSILON" default:"0.001"`
	QuoteCacheTTL   time.Duration `envconfig:"PROMOENGINE_ALLOCATION_QUOTE_CACHE_TTL" default:"15m"`
}

func (a AllocationConfig) Epsilon() (decimal.Decimal, error) {
	eps, err := decimal.NewFromString(strings.TrimSpace(a.RoundingEpsilon))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing rounding epsilon: %w", err)
	}
	if eps.IsNegative() {
		return decimal.Zero, fmt.Errorf("rounding epsilon must not be negative")
	}
	return eps, nil
}

// CurrencyConfig feeds the process-wide precision table. Raw holds
// "CODE:digits" pairs, e.g. "XTS:0,ABC:3".
type CurrencyConfig struct {
	Raw string `envconfig:"PROMOENGINE_CURRENCY_OVERRIDES" default:""`
}

func (c CurrencyConfig) Overrides() (map[string]int32, error) {
	return currency.ParseOverrides(c.Raw)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PROMOENGINE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
