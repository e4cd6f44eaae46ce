package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tripledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsInDevMode(t *testing.T) {
	cfg, err := load("", envMap(map[string]string{"DEV": "true"}))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadRequiresSecretOutsideDev(t *testing.T) {
	_, err := load("", envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
addr: ":9000"
db_path: /tmp/ledger.db
jwt_secret: from-file
token_ttl: 2h
default_currency: eur
log:
  level: debug
  format: json
receipt:
  rates_path: "$.data.{quote}"
`)

	cfg, err := load(path, envMap(map[string]string{
		"ADDR":      ":9100",
		"TOKEN_TTL": "30m",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr, "env wins over file")
	assert.Equal(t, "/tmp/ledger.db", cfg.DBPath)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "$.data.{quote}", cfg.Receipt.RatesPath)
	assert.Equal(t, "gemini-2.5-flash", cfg.Receipt.GeminiModel, "unset keys keep defaults")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown currency", func(c *Config) { c.DefaultCurrency = "ZZZ" }, "default_currency"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }, "token_ttl"},
		{"dev secret in prod", func(c *Config) { c.JWTSecret = devSecret }, "dev mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.JWTSecret = "s3cret"
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadBadInput(t *testing.T) {
	_, err := load(writeFile(t, "addr: [unclosed"), envMap(nil))
	require.Error(t, err)

	_, err = load("", envMap(map[string]string{"DEV": "1", "TOKEN_TTL": "soon"}))
	require.Error(t, err)

	_, err = load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	require.Error(t, err)
}
