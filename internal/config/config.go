// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Port        int

	DatabaseURL    string
	MigrationsPath string

	Network        string
	ChainID        int64
	NodeRPCURL     string
	ExplorerAPIURL string
	ExplorerAPIKey string

	JWTSecret     string
	EncryptionKey string

	RateLimitWindow   time.Duration
	RateLimitGeneral  int
	RateLimitAuth     int
	RateLimitTransfer int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// A missing .env file is fine, the environment is authoritative.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("ETH_NETWORK", "sepolia")
	viper.SetDefault("ETH_CHAIN_ID", 11155111)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("RATE_LIMIT_GENERAL", 100)
	viper.SetDefault("RATE_LIMIT_AUTH", 10)
	viper.SetDefault("RATE_LIMIT_TRANSFER", 5)

	cfg := &Config{
		Environment:       viper.GetString("ENVIRONMENT"),
		Port:              viper.GetInt("PORT"),
		DatabaseURL:       viper.GetString("DATABASE_URL"),
		MigrationsPath:    viper.GetString("MIGRATIONS_PATH"),
		Network:           viper.GetString("ETH_NETWORK"),
		ChainID:           viper.GetInt64("ETH_CHAIN_ID"),
		NodeRPCURL:        viper.GetString("ETH_RPC_URL"),
		ExplorerAPIURL:    viper.GetString("EXPLORER_API_URL"),
		ExplorerAPIKey:    viper.GetString("EXPLORER_API_KEY"),
		JWTSecret:         viper.GetString("JWT_SECRET"),
		EncryptionKey:     viper.GetString("ENCRYPTION_KEY"),
		RateLimitWindow:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		RateLimitGeneral:  viper.GetInt("RATE_LIMIT_GENERAL"),
		RateLimitAuth:     viper.GetInt("RATE_LIMIT_AUTH"),
		RateLimitTransfer: viper.GetInt("RATE_LIMIT_TRANSFER"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.NodeRPCURL == "" {
		return errors.New("ETH_RPC_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.EncryptionKey) < 32 {
		return errors.New("ENCRYPTION_KEY is required and must be at least 32 bytes")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
