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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	RateLimit    RateLimitConfig
	Stripe       StripeConfig
	Settings     SettingsConfig
	Reconcile    ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settings.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Reconcile.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STRIPEPAY_APP_ENV" required:"true"`
	Port         string   `envconfig:"STRIPEPAY_APP_PORT" required:"true"`
	BaseURL      string   `envconfig:"STRIPEPAY_APP_BASE_URL" default:"http://localhost:8080"`
	LogLevel     string   `envconfig:"STRIPEPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STRIPEPAY_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STRIPEPAY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STRIPEPAY_DB_DSN"`
	Driver string `envconfig:"STRIPEPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STRIPEPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"STRIPEPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STRIPEPAY_DB_USER"`
	LegacyPassword string `envconfig:"STRIPEPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"STRIPEPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"STRIPEPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STRIPEPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STRIPEPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STRIPEPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STRIPEPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STRIPEPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STRIPEPAY_REDIS_ADDR"`
	Password     string        `envconfig:"STRIPEPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"STRIPEPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STRIPEPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STRIPEPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STRIPEPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STRIPEPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STRIPEPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig guards the admin surface (Connect management).
type JWTConfig struct {
	Secret            string `envconfig:"STRIPEPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STRIPEPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STRIPEPAY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STRIPEPAY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"STRIPEPAY_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

// RateLimitConfig bounds how often one client may start a checkout.
type RateLimitConfig struct {
	CheckoutWindow     time.Duration `envconfig:"STRIPEPAY_CHECKOUT_RATE_WINDOW" default:"1m"`
	CheckoutIPLimit    int           `envconfig:"STRIPEPAY_CHECKOUT_RATE_IP_LIMIT" default:"20"`
	CheckoutEmailLimit int           `envconfig:"STRIPEPAY_CHECKOUT_RATE_EMAIL_LIMIT" default:"10"`
	CheckoutTrustXFF   bool          `envconfig:"STRIPEPAY_CHECKOUT_RATE_TRUST_XFF" default:"false"`
}

type StripeConfig struct {
	APIKey          string `envconfig:"STRIPEPAY_STRIPE_API_KEY"`
	Secret          string `envconfig:"STRIPEPAY_STRIPE_SECRET"`
	Env             string `envconfig:"STRIPEPAY_STRIPE_ENV" default:"test"`
	ConnectClientID string `envconfig:"STRIPEPAY_STRIPE_CONNECT_CLIENT_ID"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// SettingsConfig holds the plugin-level defaults consumed by the payment flows.
type SettingsConfig struct {
	GlobalRate        string `envconfig:"STRIPEPAY_GLOBAL_RATE" default:"100"`
	CancelAtPeriodEnd bool   `envconfig:"STRIPEPAY_CANCEL_AT_PERIOD_END" default:"false"`
	DefaultReturnURL  string `envconfig:"STRIPEPAY_DEFAULT_RETURN_URL" default:"/"`
}

// DefaultRate parses GlobalRate. validate guarantees it is in [0,100].
func (s SettingsConfig) DefaultRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(s.GlobalRate))
	if err != nil {
		return decimal.NewFromInt(100)
	}
	return rate
}

func (s SettingsConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(s.GlobalRate))
	if err != nil {
		return fmt.Errorf("%s must be numeric: %w", EnvGlobalRate, err)
	}
	if rate.LessThan(decimal.Zero) || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100, got %s", EnvGlobalRate, rate)
	}
	if !rate.Equal(rate.Round(2)) {
		return fmt.Errorf("%s allows at most two decimal places, got %s", EnvGlobalRate, rate)
	}
	return nil
}

// ReconcileConfig tunes the wait between Stripe redirecting the buyer back and
// the order becoming visible locally.
type ReconcileConfig struct {
	SettlingDelay time.Duration `envconfig:"STRIPEPAY_RECONCILE_SETTLING_DELAY" default:"1s"`
	MaxAttempts   uint64        `envconfig:"STRIPEPAY_RECONCILE_MAX_ATTEMPTS" default:"4"`
	BaseBackoff   time.Duration `envconfig:"STRIPEPAY_RECONCILE_BASE_BACKOFF" default:"500ms"`
	MaxBackoff    time.Duration `envconfig:"STRIPEPAY_RECONCILE_MAX_BACKOFF" default:"4s"`
}

func (r ReconcileConfig) validate() error {
	if r.SettlingDelay < 0 {
		return fmt.Errorf("%s must be non-negative", EnvReconcileSettlingDelay)
	}
	if r.MaxAttempts == 0 {
		return fmt.Errorf("%s must be at least 1", EnvReconcileMaxAttempts)
	}
	if r.BaseBackoff <= 0 {
		return fmt.Errorf("%s must be positive", EnvReconcileBaseBackoff)
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
