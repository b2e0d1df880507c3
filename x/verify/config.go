package verify

import "time"

// DefaultEndpoint is the Cloudflare Turnstile siteverify URL.
const DefaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Config holds Turnstile client settings.
type Config struct {
	Enabled  bool          `mapstructure:"enabled"  yaml:"enabled"`
	Secret   string        `mapstructure:"secret"   yaml:"secret"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Endpoint: DefaultEndpoint,
		Timeout:  10 * time.Second,
	}
}
