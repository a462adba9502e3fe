package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv        string `envconfig:"APP_ENV" default:"development"`
	Port          string `envconfig:"PORT" default:"8080"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL   string `envconfig:"DATABASE_URL"`
	TxMaxAttempts int    `envconfig:"TX_MAX_ATTEMPTS" default:"5"`

	RedisAddr           string        `envconfig:"REDIS_ADDR"`
	RedisPassword       string        `envconfig:"REDIS_PASSWORD"`
	RedisDB             int           `envconfig:"REDIS_DB" default:"0"`
	DeliverableCacheTTL time.Duration `envconfig:"DELIVERABLE_CACHE_TTL" default:"30s"`
	AsynqQueue          string        `envconfig:"ASYNQ_QUEUE" default:"default"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"240"`
	// ClampOverRequest caps over-requested delivery quantities at the pending amount; when
	// false such requests are rejected.
	ClampOverRequest bool `envconfig:"CLAMP_OVER_REQUEST" default:"true"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.AllowedOrigin = strings.TrimSpace(cfg.AllowedOrigin)
	cfg.AsynqQueue = strings.TrimSpace(cfg.AsynqQueue)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.TxMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1, got %d", c.TxMaxAttempts))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1, got %d", c.RateLimitPerMinute))
	}
	if c.DeliverableCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("DELIVERABLE_CACHE_TTL must be positive, got %s", c.DeliverableCacheTTL))
	}
	if c.AsynqQueue == "" {
		errs = append(errs, errors.New("ASYNQ_QUEUE must not be empty"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
