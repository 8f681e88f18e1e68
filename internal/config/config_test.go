package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "escrow-admin", cfg.App.Name)
	assert.Equal(t, 10*time.Minute, cfg.Actions.Timeout)
	assert.Equal(t, 8, cfg.Actions.RiskReasonsLimit)
	assert.Equal(t, int64(31), cfg.Chain.ChainID)
	assert.Equal(t, 2*time.Second, cfg.Chain.ReceiptPollInterval)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Empty(t, cfg.API.BaseURL)
	assert.False(t, cfg.Wallet.Present())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: " http://localhost:4000 "
chain:
  chain_id: 1337
  escrow_address: "0x00000000000000000000000000000000000000e5"
actions:
  timeout: 30s
storage:
  type: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", cfg.API.BaseURL)
	assert.Equal(t, int64(1337), cfg.Chain.ChainID)
	assert.Equal(t, "0x00000000000000000000000000000000000000e5", cfg.Chain.EscrowAddress)
	assert.Equal(t, 30*time.Second, cfg.Actions.Timeout)
	assert.Equal(t, "memory", cfg.Storage.Type)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_API_URL", "http://legacy:4000")
	t.Setenv("NEXT_PUBLIC_TOKEN_ADDRESS", "0x00000000000000000000000000000000000000aa")
	t.Setenv("NEXT_PUBLIC_CHAIN_ID", "30")

	cfg, err := Load(writeConfig(t, "storage:\n  type: memory\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://legacy:4000", cfg.API.BaseURL)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", cfg.Chain.TokenAddress)
	assert.Equal(t, int64(30), cfg.Chain.ChainID)
}

func TestPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_API_URL", "http://legacy:4000")
	t.Setenv("ESCROW_ADMIN_API_BASE_URL", "http://primary:4000")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "http://primary:4000", cfg.API.BaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Type = "mongo" }},
		{"missing connection string", func(c *Config) { c.Storage.ConnectionString = "" }},
		{"negative timeout", func(c *Config) { c.Actions.Timeout = -time.Second }},
		{"zero reasons", func(c *Config) { c.Actions.RiskReasonsLimit = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"two wallets", func(c *Config) {
			c.Wallet.PrivateKey = "abc"
			c.Wallet.KeystorePath = "/tmp/key.json"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSummaryMissingAPIURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "Missing API URL", cfg.Summary()["api_url"])

	cfg.API.BaseURL = "http://localhost:4000"
	assert.Equal(t, "http://localhost:4000", cfg.Summary()["api_url"])
}
