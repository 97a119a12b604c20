package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// PublicURL is the externally visible origin, used for checkout return
	// links. Empty means derive it from each request.
	PublicURL string `env:"PUBLIC_URL"`

	API     APIConfig
	Session SessionConfig
	Role    RoleConfig
	Auth    AuthConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

// APIConfig points at the REST backend.
type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL, default=http://localhost:5000"`
	Timeout time.Duration `env:"API_TIMEOUT,  default=10s"`
}

type SessionConfig struct {
	TTL          time.Duration `env:"SESSION_TTL,        default=168h"`
	CookieName   string        `env:"SESSION_COOKIE,     default=decorhub_session"`
	CookieSecure bool          `env:"COOKIE_SECURE,      default=false"`
	GuardWait    time.Duration `env:"GUARD_WAIT_TIMEOUT, default=2s"`
	// SweepInterval and IdleTimeout bound how long unreferenced signed-in
	// stores stay in memory.
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=1m"`
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT,   default=30m"`
	// SnapshotWorkers is the number of goroutines persisting identity
	// snapshots to Redis.
	SnapshotWorkers int `env:"SESSION_SNAPSHOT_WORKERS, default=4"`
}

type RoleConfig struct {
	FreshTTL     time.Duration `env:"ROLE_FRESH_TTL,     default=5m"`
	RetentionTTL time.Duration `env:"ROLE_RETENTION_TTL, default=10m"`
	Retries      uint          `env:"ROLE_RETRIES,       default=3"`
}

// AuthConfig configures the local identity provider.
type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=5m"`
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,            default=decorhub"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE, default=0"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=0"`
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL %q must be an absolute http(s) url", c.API.BaseURL))
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PUBLIC_URL %q must be an absolute url", c.PublicURL))
		}
	} else if c.IsProduction() {
		// Without it checkout links would follow the request Host header.
		errs = append(errs, errors.New("PUBLIC_URL is required in production"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Role.FreshTTL <= 0 {
		errs = append(errs, errors.New("ROLE_FRESH_TTL must be positive"))
	}
	if c.Role.RetentionTTL < c.Role.FreshTTL {
		errs = append(errs, errors.New("ROLE_RETENTION_TTL must not be shorter than ROLE_FRESH_TTL"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TIMEOUT must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("SESSION_COOKIE must not be empty"))
	}
	if c.IsProduction() && !c.Session.CookieSecure {
		errs = append(errs, errors.New("COOKIE_SECURE must be true in production"))
	}

	return errors.Join(errs...)
}
