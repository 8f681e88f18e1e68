// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
	Actions ActionsConfig `mapstructure:"actions"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// APIConfig points at the escrow backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChainConfig contains the target chain and contract addresses
type ChainConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	ChainID             int64         `mapstructure:"chain_id"`
	EscrowAddress       string        `mapstructure:"escrow_address"`
	TokenAddress        string        `mapstructure:"token_address"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
}

// WalletConfig holds the signing material. Either PrivateKey or
// KeystorePath may be set; with neither the wallet is absent.
type WalletConfig struct {
	PrivateKey         string        `mapstructure:"private_key"`
	KeystorePath       string        `mapstructure:"keystore_path"`
	KeystorePassphrase string        `mapstructure:"keystore_passphrase"`
	WatchInterval      time.Duration `mapstructure:"watch_interval"`
}

// Present reports whether any wallet material is configured.
func (w WalletConfig) Present() bool {
	return strings.TrimSpace(w.PrivateKey) != "" || strings.TrimSpace(w.KeystorePath) != ""
}

// ActionsConfig tunes the per-deal action orchestrator
type ActionsConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	RiskReasonsLimit int           `mapstructure:"risk_reasons_limit"`
}

// StorageConfig contains action journal configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // memory, sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
	CORSOrigins   []string      `mapstructure:"cors_origins"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, stderr, file
	File   string `mapstructure:"file"`
}

// legacyEnv maps settings to the environment names the web panel used.
var legacyEnv = map[string]string{
	"api.base_url":         "NEXT_PUBLIC_API_URL",
	"chain.chain_id":       "NEXT_PUBLIC_CHAIN_ID",
	"chain.escrow_address": "NEXT_PUBLIC_ESCROW_ADDRESS",
	"chain.token_address":  "NEXT_PUBLIC_TOKEN_ADDRESS",
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ESCROW_ADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		// Prefixed variables win over the legacy names.
		prefixed := "ESCROW_ADMIN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.API.BaseURL = strings.TrimSpace(config.API.BaseURL)
	config.Chain.EscrowAddress = strings.TrimSpace(config.Chain.EscrowAddress)
	config.Chain.TokenAddress = strings.TrimSpace(config.Chain.TokenAddress)

	return &config, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults are all well-typed; Unmarshal cannot fail here.
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "escrow-admin")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Backend defaults. The base URL has no default: a missing value
	// fails the requests that need it, not startup.
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "30s")

	// Chain defaults
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.chain_id", 31) // RSK Testnet
	v.SetDefault("chain.escrow_address", "")
	v.SetDefault("chain.token_address", "")
	v.SetDefault("chain.request_timeout", "30s")
	v.SetDefault("chain.receipt_poll_interval", "2s")

	// Wallet defaults
	v.SetDefault("wallet.private_key", "")
	v.SetDefault("wallet.keystore_path", "")
	v.SetDefault("wallet.keystore_passphrase", "")
	v.SetDefault("wallet.watch_interval", "15s")

	// Action defaults
	v.SetDefault("actions.timeout", "10m")
	v.SetDefault("actions.risk_reasons_limit", 8)

	// Storage defaults
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.connection_string", "./data/actions.db")
	v.SetDefault("storage.max_connections", 10)
	v.SetDefault("storage.max_idle_time", "15m")

	// Server defaults
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.enable_health", true)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration. Backend and contract settings are
// intentionally not required here; each action checks what it needs.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory":
	case "sqlite", "postgres":
		if c.Storage.ConnectionString == "" {
			return fmt.Errorf("storage connection string is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Actions.Timeout < 0 {
		return fmt.Errorf("actions timeout must not be negative")
	}
	if c.Actions.RiskReasonsLimit <= 0 {
		return fmt.Errorf("actions risk reasons limit must be positive")
	}
	if c.Chain.ReceiptPollInterval <= 0 {
		return fmt.Errorf("chain receipt poll interval must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Wallet.PrivateKey != "" && c.Wallet.KeystorePath != "" {
		return fmt.Errorf("wallet private key and keystore path are mutually exclusive")
	}
	return nil
}

// Summary returns the non-secret settings shown by the health endpoint.
func (c *Config) Summary() map[string]interface{} {
	apiURL := c.API.BaseURL
	if apiURL == "" {
		apiURL = "Missing API URL"
	}
	return map[string]interface{}{
		"api_url":        apiURL,
		"chain_id":       c.Chain.ChainID,
		"escrow_address": c.Chain.EscrowAddress,
		"token_address":  c.Chain.TokenAddress,
		"wallet":         c.Wallet.Present(),
		"storage":        c.Storage.Type,
	}
}
