// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	LogLevel       string        `envconfig:"APP_LOG_LEVEL" default:"info"`
	Port           string        `envconfig:"PORT" default:"8080"`
	DatabasePath   string        `envconfig:"DATABASE_PATH" default:"stickerchart.db"`
	DBBusyTimeout  time.Duration `envconfig:"DB_BUSY_TIMEOUT" default:"5s"`
	ImageDir       string        `envconfig:"IMAGE_DIR" default:"images"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"60m"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.DBBusyTimeout < 0 {
		return fmt.Errorf("DB_BUSY_TIMEOUT must not be negative")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.AppEnv == "production" && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
