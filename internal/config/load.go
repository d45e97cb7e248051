package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Load reads an optional .env file (path taken from ENV_FILE, default ".env")
// and parses the process environment into a Config.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "failed to load env file %s", envFile)
		}
	}

	return Parse(env.Options{})
}

func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, errors.Wrap(err, "failed to parse config from environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Queue.StandardCost <= 0 {
		return errors.New("queue standard cost must be positive")
	}
	if c.Queue.PriorityCost <= c.Queue.StandardCost {
		return errors.New("queue priority cost must exceed standard cost")
	}
	if c.Queue.MaxLength < 0 {
		return errors.New("queue max length can not be negative")
	}
	if c.Ledger.Timeout <= 0 || c.Ledger.ReconcileTimeout <= 0 {
		return errors.New("ledger timeouts must be positive")
	}

	switch c.Ledger.Mode {
	case LedgerModeHTTP, LedgerModeStub:
	default:
		return errors.Errorf("ledger mode %q is not supported", c.Ledger.Mode)
	}

	switch c.Broadcast.Relay {
	case RelayRedis, RelayLocal:
	default:
		return errors.Errorf("broadcast relay %q is not supported", c.Broadcast.Relay)
	}

	if c.Broadcast.SendBuffer <= 0 {
		return errors.New("broadcast send buffer must be positive")
	}

	return nil
}
