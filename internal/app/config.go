package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/token"
)

// Revocation backends accepted by REVOCATION_BACKEND.
const (
	RevocationRedis  = "redis"
	RevocationMemory = "memory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	TrustProxyHeaders bool          `envconfig:"TRUST_PROXY_HEADERS" default:"false"`

	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	PGDSN string `envconfig:"PG_DSN" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`
	JWTAlgorithm       string `envconfig:"JWT_ALGORITHM" required:"true"`
	TokenExpireSeconds int    `envconfig:"TOKEN_EXPIRE_SECONDS" required:"true"`

	RevocationBackend string        `envconfig:"REVOCATION_BACKEND" default:"redis"`
	LookupTimeout     time.Duration `envconfig:"LOOKUP_TIMEOUT" default:"500ms"`
	LoginRateLimit    int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	BcryptCost        int           `envconfig:"BCRYPT_COST" default:"12"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	var problems []string
	if len(c.JWTSecret) < token.MinSecretLength {
		problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d bytes", token.MinSecretLength))
	}
	if !token.SupportedAlgorithm(c.JWTAlgorithm) {
		problems = append(problems, "JWT_ALGORITHM must be one of HS256, HS384, HS512")
	}
	if c.TokenExpireSeconds <= 0 {
		problems = append(problems, "TOKEN_EXPIRE_SECONDS must be positive")
	}
	if c.LookupTimeout <= 0 {
		problems = append(problems, "LOOKUP_TIMEOUT must be positive")
	}
	switch c.RevocationBackend {
	case RevocationRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis revocation backend")
		}
	case RevocationMemory:
	default:
		problems = append(problems, "REVOCATION_BACKEND must be redis or memory")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// TokenTTL returns the configured session token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenExpireSeconds) * time.Second
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q is not a valid level", value)
	}
	return level, nil
}
