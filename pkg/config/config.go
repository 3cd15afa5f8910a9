package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Commerce     CommerceConfig
	Pricing      PricingConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	PubSub       PubSubConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Pricing.Parse(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TECHSTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"TECHSTORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TECHSTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TECHSTORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CommerceConfig points at the remote commerce backend (cart, orders, payments).
type CommerceConfig struct {
	BaseURL        string        `envconfig:"TECHSTORE_COMMERCE_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"TECHSTORE_COMMERCE_REQUEST_TIMEOUT" default:"10s"`
}

func (c CommerceConfig) validate() error {
	u, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvCommerceBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvCommerceBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvCommerceTimeout)
	}
	return nil
}

// PricingConfig carries the flat-rate business rules as decimal strings.
type PricingConfig struct {
	TaxRate               string `envconfig:"TECHSTORE_PRICING_TAX_RATE" default:"0.10"`
	FreeShippingThreshold string `envconfig:"TECHSTORE_PRICING_FREE_SHIPPING_THRESHOLD" default:"50.00"`
	FlatShippingFee       string `envconfig:"TECHSTORE_PRICING_FLAT_SHIPPING_FEE" default:"10.00"`
}

// PricingValues is the parsed form of PricingConfig.
type PricingValues struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// Parse converts the configured strings to decimals and rejects negative values.
func (p PricingConfig) Parse() (PricingValues, error) {
	var out PricingValues
	fields := []struct {
		env  string
		raw  string
		dest *decimal.Decimal
	}{
		{EnvPricingTaxRate, p.TaxRate, &out.TaxRate},
		{EnvPricingThreshold, p.FreeShippingThreshold, &out.FreeShippingThreshold},
		{EnvPricingFlatFee, p.FlatShippingFee, &out.FlatShippingFee},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(strings.TrimSpace(f.raw))
		if err != nil {
			return PricingValues{}, fmt.Errorf("parsing %s: %w", f.env, err)
		}
		if v.IsNegative() {
			return PricingValues{}, fmt.Errorf("%s must not be negative", f.env)
		}
		*f.dest = v
	}
	return out, nil
}

type StripeConfig struct {
	PublishableKey string `envconfig:"TECHSTORE_STRIPE_PUBLISHABLE_KEY"`
	SecretKey      string `envconfig:"TECHSTORE_STRIPE_SECRET_KEY"`
	Env            string `envconfig:"TECHSTORE_STRIPE_ENV" default:"test"`
	ReturnURL      string `envconfig:"TECHSTORE_STRIPE_RETURN_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	LockTTL        time.Duration `envconfig:"TECHSTORE_CHECKOUT_LOCK_TTL" default:"2m"`
	CallTimeout    time.Duration `envconfig:"TECHSTORE_CHECKOUT_CALL_TIMEOUT" default:"10s"`
	SessionIdleTTL time.Duration `envconfig:"TECHSTORE_SHOPPER_SESSION_IDLE_TTL" default:"30m"`
}

type DBConfig struct {
	DSN    string `envconfig:"TECHSTORE_DB_DSN"`
	Driver string `envconfig:"TECHSTORE_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"TECHSTORE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"TECHSTORE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"TECHSTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TECHSTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TECHSTORE_REDIS_URL"`
	Address      string        `envconfig:"TECHSTORE_REDIS_ADDR"`
	Password     string        `envconfig:"TECHSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TECHSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TECHSTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TECHSTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TECHSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TECHSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TECHSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string `envconfig:"TECHSTORE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"TECHSTORE_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TECHSTORE_AUTO_MIGRATE" default:"false"`
}

type PubSubConfig struct {
	ProjectID     string `envconfig:"TECHSTORE_GCP_PROJECT_ID"`
	CheckoutTopic string `envconfig:"TECHSTORE_PUBSUB_CHECKOUT_TOPIC"`
}

// Enabled reports whether checkout events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != "" && strings.TrimSpace(p.CheckoutTopic) != ""
}

// RateLimitConfig bounds per-shopper request rates. A zero limit disables it.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"TECHSTORE_RATE_LIMIT_WINDOW" default:"1m"`
	CheckoutLimit int           `envconfig:"TECHSTORE_RATE_LIMIT_CHECKOUT" default:"10"`
	CartLimit     int           `envconfig:"TECHSTORE_RATE_LIMIT_CART" default:"120"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TECHSTORE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
