package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/riddle-labs/bountyd/server/api"
	"github.com/riddle-labs/bountyd/x/payout"
	"github.com/riddle-labs/bountyd/x/verify"
)

// Config holds the complete application configuration
type Config struct {
	API     api.Config    `mapstructure:"api"     yaml:"api"`
	Log     LogConfig     `mapstructure:"log"     yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Store   StoreConfig   `mapstructure:"store"   yaml:"store"`
	Verify  verify.Config `mapstructure:"verify"  yaml:"verify"`
	Payout  payout.Config `mapstructure:"payout"  yaml:"payout"`
	Claim   ClaimConfig   `mapstructure:"claim"   yaml:"claim"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
	Port    int    `mapstructure:"port"    yaml:"port"    env:"METRICS_PORT"`
	Path    string `mapstructure:"path"    yaml:"path"    env:"METRICS_PATH"`
}

// StoreConfig holds Postgres settings
type StoreConfig struct {
	DSN      string `mapstructure:"dsn"       yaml:"dsn"       env:"STORE_DSN"`
	MaxConns int32  `mapstructure:"max_conns" yaml:"max_conns" env:"STORE_MAX_CONNS"`
}

// ClaimConfig holds arbiter settings
type ClaimConfig struct {
	// DefaultAmountUSD is dispatched when a bounty carries no explicit
	// amount and its reward text has no dollar figure. Required; the
	// arbiter does not invent a fallback.
	DefaultAmountUSD float64 `mapstructure:"default_amount_usd" yaml:"default_amount_usd" env:"CLAIM_DEFAULT_AMOUNT_USD"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Fallback env aliases for secrets, matching the names operators
	// already provision for the hosted stack.
	if strings.TrimSpace(cfg.Verify.Secret) == "" {
		cfg.Verify.Secret = strings.TrimSpace(os.Getenv("TURNSTILE_SECRET_KEY"))
	}
	if strings.TrimSpace(cfg.Payout.TreasuryPKHex) == "" {
		cfg.Payout.TreasuryPKHex = strings.TrimSpace(os.Getenv("TREASURY_PRIVATE_KEY"))
	}
	if strings.TrimSpace(cfg.Store.DSN) == "" {
		cfg.Store.DSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if strings.TrimSpace(cfg.Payout.RPCEndpoint) == "" {
		cfg.Payout.RPCEndpoint = strings.TrimSpace(os.Getenv("CHAIN_RPC_URL"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	apiDefaults := api.DefaultConfig()
	v.SetDefault("api.listen_addr", apiDefaults.ListenAddr)
	v.SetDefault("api.read_header_timeout", apiDefaults.ReadHeaderTimeout)
	v.SetDefault("api.read_timeout", apiDefaults.ReadTimeout)
	v.SetDefault("api.write_timeout", apiDefaults.WriteTimeout)
	v.SetDefault("api.idle_timeout", apiDefaults.IdleTimeout)
	v.SetDefault("api.max_header_bytes", apiDefaults.MaxHeaderBytes)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 10)

	verifyDefaults := verify.DefaultConfig()
	v.SetDefault("verify.enabled", verifyDefaults.Enabled)
	v.SetDefault("verify.secret", "")
	v.SetDefault("verify.endpoint", verifyDefaults.Endpoint)
	v.SetDefault("verify.timeout", verifyDefaults.Timeout)

	payoutDefaults := payout.DefaultConfig()
	v.SetDefault("payout.rpc_endpoint", "")
	v.SetDefault("payout.chain_id", 0)
	v.SetDefault("payout.token_address", "")
	v.SetDefault("payout.token_decimals", payoutDefaults.TokenDecimals)
	v.SetDefault("payout.treasury_pk_hex", "")
	v.SetDefault("payout.confirm_timeout", payoutDefaults.ConfirmTimeout)
	v.SetDefault("payout.poll_interval", payoutDefaults.PollInterval)
	v.SetDefault("payout.gas_limit_buffer_pct", payoutDefaults.GasLimitBufferPct)

	v.SetDefault("claim.default_amount_usd", 0)
}

// Validate validates the configuration. The service fails closed: missing
// verification or payout credentials refuse to start rather than degrade.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.ListenAddr) == "" {
		return fmt.Errorf("api.listen_addr is required")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1-65535 when metrics enabled, got %d", c.Metrics.Port)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return fmt.Errorf("store.dsn is required")
	}
	if c.Store.MaxConns <= 0 {
		return fmt.Errorf("store.max_conns must be positive, got %d", c.Store.MaxConns)
	}
	if c.Verify.Enabled && strings.TrimSpace(c.Verify.Secret) == "" {
		return fmt.Errorf("verify.secret is required when verification is enabled")
	}
	if strings.TrimSpace(c.Payout.RPCEndpoint) == "" {
		return fmt.Errorf("payout.rpc_endpoint is required")
	}
	if c.Payout.ChainID == 0 {
		return fmt.Errorf("payout.chain_id is required")
	}
	if strings.TrimSpace(c.Payout.TokenAddress) == "" {
		return fmt.Errorf("payout.token_address is required")
	}
	if strings.TrimSpace(c.Payout.TreasuryPKHex) == "" {
		return fmt.Errorf("payout.treasury_pk_hex is required")
	}
	if c.Claim.DefaultAmountUSD <= 0 {
		return fmt.Errorf("claim.default_amount_usd must be set explicitly")
	}
	return nil
}
