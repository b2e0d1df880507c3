package payout

import "time"

// Config holds chain and treasury settings for the ERC-20 dispatcher.
type Config struct {
	RPCEndpoint   string `mapstructure:"rpc_endpoint"    yaml:"rpc_endpoint"`
	ChainID       uint64 `mapstructure:"chain_id"        yaml:"chain_id"`
	TokenAddress  string `mapstructure:"token_address"   yaml:"token_address"`
	TokenDecimals int    `mapstructure:"token_decimals"  yaml:"token_decimals"`
	TreasuryPKHex string `mapstructure:"treasury_pk_hex" yaml:"treasury_pk_hex"`
	// ConfirmTimeout bounds how long SendPayout waits for a mined receipt
	// before reporting failure.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" yaml:"confirm_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"   yaml:"poll_interval"`
	// GasLimitBufferPct pads the gas estimate.
	GasLimitBufferPct uint64 `mapstructure:"gas_limit_buffer_pct" yaml:"gas_limit_buffer_pct"`
}

func DefaultConfig() Config {
	return Config{
		TokenDecimals:     6, // USDC
		ConfirmTimeout:    90 * time.Second,
		PollInterval:      2 * time.Second,
		GasLimitBufferPct: 15,
	}
}
