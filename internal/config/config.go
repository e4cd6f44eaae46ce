// Package config loads server configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/tripledger/internal/money"
)

// devSecret is only accepted when Dev is set.
const devSecret = "dev-secret-do-not-use"

type Config struct {
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`
	// Dev relaxes checks that only matter in production.
	Dev bool `yaml:"dev"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	// DefaultCurrency is used for groups created without a currency.
	DefaultCurrency string `yaml:"default_currency"`

	Log     LogConfig     `yaml:"log"`
	Receipt ReceiptConfig `yaml:"receipt"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is "text" (colored) or "json".
	Format string `yaml:"format"`
}

type ReceiptConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	// RatesURL is fetched with {base} replaced by the source currency.
	RatesURL string `yaml:"rates_url"`
	// RatesPath is a JSONPath with {quote} replaced by the target currency.
	RatesPath string        `yaml:"rates_path"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:            ":8080",
		DBPath:          "./data/ledger.db",
		TokenTTL:        24 * time.Hour,
		DefaultCurrency: "USD",
		Log:             LogConfig{Level: "info", Format: "text"},
		Receipt: ReceiptConfig{
			GeminiModel: "gemini-2.5-flash",
			RatesURL:    "https://open.er-api.com/v6/latest/{base}",
			RatesPath:   "$.rates.{quote}",
			Timeout:     10 * time.Second,
		},
	}
}

// Load reads path (if not empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, env func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}
	if cfg.Dev && cfg.JWTSecret == "" {
		cfg.JWTSecret = devSecret
	}
	cfg.DefaultCurrency = strings.ToUpper(cfg.DefaultCurrency)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(env func(string) string, key, fallback string) string {
	if value := env(key); value != "" {
		return value
	}
	return fallback
}

func (c *Config) applyEnv(env func(string) string) error {
	c.Addr = getEnv(env, "ADDR", c.Addr)
	c.DBPath = getEnv(env, "DB_PATH", c.DBPath)
	c.JWTSecret = getEnv(env, "JWT_SECRET", c.JWTSecret)
	c.DefaultCurrency = getEnv(env, "DEFAULT_CURRENCY", c.DefaultCurrency)
	c.Log.Level = getEnv(env, "LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv(env, "LOG_FORMAT", c.Log.Format)
	c.Receipt.GeminiAPIKey = getEnv(env, "GEMINI_API_KEY", c.Receipt.GeminiAPIKey)
	c.Receipt.GeminiModel = getEnv(env, "GEMINI_MODEL", c.Receipt.GeminiModel)
	c.Receipt.RatesURL = getEnv(env, "RATES_URL", c.Receipt.RatesURL)
	c.Receipt.RatesPath = getEnv(env, "RATES_PATH", c.Receipt.RatesPath)

	if v := env("DEV"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DEV: %w", err)
		}
		c.Dev = dev
	}
	if v := env("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: TOKEN_TTL: %w", err)
		}
		c.TokenTTL = ttl
	}
	return nil
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required outside dev mode"))
	}
	if c.JWTSecret == devSecret && !c.Dev {
		errs = append(errs, errors.New("the development jwt_secret cannot be used outside dev mode"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if !money.KnownCurrency(c.DefaultCurrency) {
		errs = append(errs, fmt.Errorf("default_currency %q is not an ISO-4217 code", c.DefaultCurrency))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
