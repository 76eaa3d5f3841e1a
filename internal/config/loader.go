package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "XPR_WALLET"

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	v.SetDefault("network", "mainnet")
	v.SetDefault("permission", "active")
	v.SetDefault("log_level", "info")
	v.SetDefault("interval", "")
	v.SetDefault("http_port", 8080)
	v.SetDefault("run_immediately", true)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("state_file", defaultStateFile)
	v.SetDefault("price_api", "https://api.coingecko.com/api/v3")
	v.SetDefault("price_ttl", "60s")
	v.SetDefault("requests_per_second", 5)

	// 2. Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// XPR_WALLET_NETWORK -> network
	for _, key := range []string{
		"network", "account", "permission", "log_level", "http_port", "interval",
		"timezone", "run_immediately", "state_file", "price_api", "price_ttl",
		"requests_per_second", "accounts",
	} {
		v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key))
	}

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated account list from env
	if accountsEnv := v.GetString("accounts"); strings.Contains(accountsEnv, ",") {
		cfg.Accounts = strings.Split(accountsEnv, ",")
	}

	// 6. Normalize
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	// 7. Validate with validator
	if err := NewValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with DATABASE_URL from environment
func LoadWithDefaults(configPath string) (*Config, string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, "", err
	}

	databaseURL := EnvSecret(DatabaseURLEnv)

	if databaseURL == "" {
		return nil, "", errors.New("DATABASE_URL is required")
	}

	return cfg, databaseURL, nil
}

// DatabaseURLEnv names the PostgreSQL connection string.
const DatabaseURLEnv = "DATABASE_URL"

// EnvSecret returns the value of the environment variable env, trimmed.
// Secrets are bound on a viper instance of their own so that they can never
// come from the config file.
func EnvSecret(env string) string {
	v := viper.New()
	key := strings.ToLower(env)
	_ = v.BindEnv(key, env)
	return strings.TrimSpace(v.GetString(key))
}
