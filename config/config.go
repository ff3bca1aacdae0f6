// Package config loads runtime settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	DriverFile  = "file"
	DriverMySQL = "mysql"

	// MinBcryptCost is the lowest work factor accepted for password hashing.
	MinBcryptCost = 10
)

type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"3001"`

	JWTSecret  string `env:"JWT_SECRET,required,notEmpty"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"file"`
	DataDir       string `env:"DATA_DIR" envDefault:"data"`
	DSN           string `env:"DSN"`

	// Empty disables rate limiting on the auth routes.
	RedisURL           string  `env:"REDIS_URL"`
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	MaxRequestBodySize int64  `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.BcryptCost < MinBcryptCost {
		cfg.BcryptCost = MinBcryptCost
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverFile:
		if c.DataDir == "" {
			return errors.New("DATA_DIR is required for the file storage driver")
		}
	case DriverMySQL:
		if c.DSN == "" {
			return errors.New("DSN is required for the mysql storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// RateLimitEnabled reports whether a Redis backend is configured.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisURL != ""
}

// GetCORSAllowedOrigins splits the comma-separated origins list.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
