package arbiter

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/riddle-labs/bountyd/x/bounty"
	"github.com/riddle-labs/bountyd/x/payout"
	"github.com/riddle-labs/bountyd/x/verify"
)

// Config captures all dependencies needed to build the arbiter.
type Config struct {
	Logger     zerolog.Logger
	Store      bounty.Store
	Verifier   verify.Verifier
	Dispatcher payout.Dispatcher
	Metrics    *Metrics

	// DefaultAmountUSD is the payout used when a bounty carries no
	// explicit amount and no dollar figure can be parsed from its reward
	// text. It must be configured deliberately; the arbiter refuses to
	// invent one.
	DefaultAmountUSD float64
}

func (cfg *Config) apply() error {
	if cfg.Logger.GetLevel() == zerolog.NoLevel {
		cfg.Logger = zerolog.Nop()
	}
	if cfg.Store == nil {
		return errors.New("arbiter: store is required")
	}
	if cfg.Verifier == nil {
		return errors.New("arbiter: verifier is required")
	}
	if cfg.Dispatcher == nil {
		return errors.New("arbiter: payout dispatcher is required")
	}
	if cfg.DefaultAmountUSD <= 0 {
		return errors.New("arbiter: default payout amount must be configured")
	}
	return nil
}
