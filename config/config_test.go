package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "payment-integration", cfg.Service.Name)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Balance.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Balance.RetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, 100, cfg.Database.MaxOpenConns)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
balance:
  base_url: "http://balance.internal:9090"
  max_retries: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "http://balance.internal:9090", cfg.Balance.BaseURL)
	assert.Equal(t, 5, cfg.Balance.MaxRetries)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.Balance.RetryDelay)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9999\"\n"), 0o600))

	t.Setenv("PAYMENTD_SERVER_ADDR", ":7777")
	t.Setenv("PAYMENTD_BALANCE_TIMEOUT", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Balance.Timeout)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
