// Package config defines all configuration for the arbitrage engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via POLY_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	API       APIConfig       `mapstructure:"api"`
	Socket    SocketConfig    `mapstructure:"socket"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// WalletConfig holds the Ethereum wallet used for signing orders.
// PrivateKey signs the EIP-712 batch order digest. FunderAddress is the
// on-chain (Gnosis Safe proxy) address that funds orders.
type WalletConfig struct {
	PrivateKey    string `mapstructure:"private_key"`
	FunderAddress string `mapstructure:"funder_address"`
	ChainID       int    `mapstructure:"chain_id"`
}

// APIConfig holds Polymarket CLOB endpoints and L2 API credentials.
type APIConfig struct {
	CLOBBaseURL string `mapstructure:"clob_base_url"`
	ApiKey      string `mapstructure:"api_key"`
	Secret      string `mapstructure:"secret"`
	Passphrase  string `mapstructure:"passphrase"`
}

// SocketConfig controls the market-data websocket connections.
type SocketConfig struct {
	WSMarketURL         string        `mapstructure:"ws_market_url"`
	MaxTokensPerConn    int           `mapstructure:"max_tokens_per_connection"`
	PingInterval        time.Duration `mapstructure:"ping_interval"`
	ReadTimeout         time.Duration `mapstructure:"read_timeout"`
	ReconnectBaseDelay  time.Duration `mapstructure:"reconnect_base_delay"`
	ReconnectMaxDelay   time.Duration `mapstructure:"reconnect_max_delay"`
	ReconnectMaxAttempt int           `mapstructure:"reconnect_max_attempts"` // 0 = unlimited
}

// EngineConfig tunes the evaluators' profit thresholds and cooldown.
type EngineConfig struct {
	MinProfitAbs float64       `mapstructure:"min_profit_abs"`
	MinProfitBps float64       `mapstructure:"min_profit_bps"`
	CooldownMs   int64         `mapstructure:"cooldown_ms"`
	SignalBuffer int           `mapstructure:"signal_buffer"`
}

// ExecutorConfig tunes the should_skip gates and order preparation.
type ExecutorConfig struct {
	OpportunityTimeoutMs  int64   `mapstructure:"opportunity_timeout_ms"`
	MinPnlThresholdPct    float64 `mapstructure:"min_pnl_threshold_percent"`
	DefaultSize           float64 `mapstructure:"default_size"`
	SlippageEnabled       bool    `mapstructure:"slippage_enabled"`
	MaxPrice              float64 `mapstructure:"max_price"`
	MinPrice              float64 `mapstructure:"min_price"`
	SubmissionTimeoutSecs int     `mapstructure:"submission_timeout_secs"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the host-facing status/observability HTTP server.
type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: POLY_PRIVATE_KEY, POLY_API_KEY, POLY_API_SECRET, POLY_PASSPHRASE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("POLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("POLY_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if key := os.Getenv("POLY_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if secret := os.Getenv("POLY_API_SECRET"); secret != "" {
		cfg.API.Secret = secret
	}
	if pass := os.Getenv("POLY_PASSPHRASE"); pass != "" {
		cfg.API.Passphrase = pass
	}
	if os.Getenv("POLY_DRY_RUN") == "true" || os.Getenv("POLY_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required (set POLY_PRIVATE_KEY)")
	}
	if c.Wallet.ChainID == 0 {
		return fmt.Errorf("wallet.chain_id is required (137 for mainnet)")
	}
	if c.Wallet.FunderAddress == "" {
		return fmt.Errorf("wallet.funder_address is required (Gnosis Safe proxy)")
	}
	if c.API.CLOBBaseURL == "" {
		return fmt.Errorf("api.clob_base_url is required")
	}
	if c.Socket.WSMarketURL == "" {
		return fmt.Errorf("socket.ws_market_url is required")
	}
	if c.Socket.MaxTokensPerConn <= 0 {
		c.Socket.MaxTokensPerConn = 50
	}
	if c.Engine.SignalBuffer <= 0 {
		c.Engine.SignalBuffer = 16
	}
	if c.Executor.DefaultSize <= 0 {
		return fmt.Errorf("executor.default_size must be > 0")
	}
	if c.Executor.MaxPrice == 0 {
		c.Executor.MaxPrice = 0.99
	}
	if c.Executor.MinPrice == 0 {
		c.Executor.MinPrice = 0.01
	}
	return nil
}
