// Package config reads process configuration from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"paranoid/internal/infrastructure/storage/postgres"
	"paranoid/pkg/logger"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	AppName string `validate:"required"`
	Storage string `validate:"oneof=memory postgres"`

	DatabaseURL      string        `validate:"required_if=Storage postgres"`
	MaxConns         int32         `validate:"gte=1"`
	MinConns         int32         `validate:"gte=0,ltefield=MaxConns"`
	StatementTimeout time.Duration `validate:"gte=0"`

	LogLevel       string `validate:"oneof=debug info warn error"`
	LogDevelopment bool
}

// Load reads the configuration, optionally from the given .env files
// (default ".env").
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		AppName:          getEnv("APP_NAME", "paranoid"),
		Storage:          getEnv("PARANOID_STORAGE", StorageMemory),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MaxConns:         int32(getEnvInt("DB_MAX_CONNS", 10)),
		MinConns:         int32(getEnvInt("DB_MIN_CONNS", 1)),
		StatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogDevelopment:   getEnvBool("LOG_DEVELOPMENT", false),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config: %s failed rule %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Logger returns the logger configuration.
func (c Config) Logger() logger.Config {
	return logger.Config{
		Level:       c.LogLevel,
		Development: c.LogDevelopment,
	}
}

// Pool returns the connection pool configuration.
func (c Config) Pool() postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(c.DatabaseURL)
	pc.ApplicationName = c.AppName
	pc.MaxConns = c.MaxConns
	pc.MinConns = c.MinConns
	pc.StatementTimeout = c.StatementTimeout
	return pc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
