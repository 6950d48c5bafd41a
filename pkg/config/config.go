package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "shoptracker"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	Policy        PolicyConfig
	Seed          SeedConfig
	JWT           JWTConfig
	DB            DBConfig
	Redis         RedisConfig
	AuthRateLimit AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPTRACKER_APP_ENV" default:"dev"`
	Port         string `envconfig:"SHOPTRACKER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPTRACKER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPTRACKER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PolicyConfig tunes the access rules that are deliberately configurable.
type PolicyConfig struct {
	// AllowUserAdjust lets plain users run quantity adjustments on their
	// own. This mirrors the behaviour shipped to terminals; turning it off
	// restricts every stock mutation to admins and managers.
	AllowUserAdjust  bool `envconfig:"SHOPTRACKER_POLICY_ALLOW_USER_ADJUST" default:"true"`
	DefaultThreshold int  `envconfig:"SHOPTRACKER_DEFAULT_RESTOCK_THRESHOLD" default:"5"`
}

type SeedConfig struct {
	Catalog  bool `envconfig:"SHOPTRACKER_SEED_CATALOG" default:"true"`
	Accounts bool `envconfig:"SHOPTRACKER_SEED_ACCOUNTS" default:"true"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPTRACKER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPTRACKER_JWT_ISSUER" default:"shoptracker"`
	ExpirationMinutes int    `envconfig:"SHOPTRACKER_JWT_EXPIRATION_MINUTES" default:"480"`
}

// DBConfig configures the optional archive database. An empty DSN disables
// archiving entirely; the in-memory stores stay authoritative either way.
type DBConfig struct {
	DSN    string `envconfig:"SHOPTRACKER_DB_DSN"`
	Driver string `envconfig:"SHOPTRACKER_DB_DRIVER" default:"sqlite"`

	MaxOpenConns    int           `envconfig:"SHOPTRACKER_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"SHOPTRACKER_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPTRACKER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPTRACKER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d DBConfig) Enabled() bool {
	return d.DSN != ""
}

// RedisConfig configures the optional login throttle backend. Leaving both
// URL and address empty disables throttling.
type RedisConfig struct {
	URL          string        `envconfig:"SHOPTRACKER_REDIS_URL"`
	Address      string        `envconfig:"SHOPTRACKER_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPTRACKER_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPTRACKER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPTRACKER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPTRACKER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPTRACKER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPTRACKER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPTRACKER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SHOPTRACKER_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"SHOPTRACKER_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SHOPTRACKER_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}
