// Package config loads engine configuration from a YAML file with
// environment variable overrides. Every parameter has a default, so an
// empty file (or none at all) yields a runnable configuration once the
// connection strings are set.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default tunables.
const (
	DefaultTestAmountSOL   = 0.5
	DefaultMaxEffectiveFee = 0.40
	DefaultPoolWaitMinutes = 30
	DefaultTopHolders      = 10
	DefaultMaxTopShare     = 0.60
	DefaultMultiple        = 10.0
	DefaultDwellSeconds    = 180
	DefaultWindowHours     = 24
	DefaultMaxSlippage     = 0.15
	DefaultSampleSeconds   = 30
	DefaultLeaseSeconds    = 120
	DefaultBatchSize       = 10
	DefaultPollSeconds     = 5
	DefaultMetricsAddr     = ":9090"
)

// Load reads the YAML file at path, then applies environment variable
// overrides. A .env file in the working directory is honored when
// present. An empty path skips the file and loads defaults plus
// environment only.
func Load(path string) (*Config, error) {
	// Missing .env is not an error.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Checks.TestAmountSOL == 0 {
		c.Checks.TestAmountSOL = DefaultTestAmountSOL
	}
	if c.Checks.MaxEffectiveFee == 0 {
		c.Checks.MaxEffectiveFee = DefaultMaxEffectiveFee
	}
	if c.Checks.PoolWaitMinutes == 0 {
		c.Checks.PoolWaitMinutes = DefaultPoolWaitMinutes
	}
	if c.Checks.TopHolders == 0 {
		c.Checks.TopHolders = DefaultTopHolders
	}
	if c.Checks.MaxTopShare == 0 {
		c.Checks.MaxTopShare = DefaultMaxTopShare
	}
	if c.Outcome.Multiple == 0 {
		c.Outcome.Multiple = DefaultMultiple
	}
	if c.Outcome.DwellSeconds == 0 {
		c.Outcome.DwellSeconds = DefaultDwellSeconds
	}
	if c.Outcome.WindowHours == 0 {
		c.Outcome.WindowHours = DefaultWindowHours
	}
	if c.Outcome.MaxSlippage == 0 {
		c.Outcome.MaxSlippage = DefaultMaxSlippage
	}
	if c.Outcome.SampleSeconds == 0 {
		c.Outcome.SampleSeconds = DefaultSampleSeconds
	}
	if c.Engine.LeaseSeconds == 0 {
		c.Engine.LeaseSeconds = DefaultLeaseSeconds
	}
	if c.Engine.BatchSize == 0 {
		c.Engine.BatchSize = DefaultBatchSize
	}
	if c.Engine.PollSeconds == 0 {
		c.Engine.PollSeconds = DefaultPollSeconds
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Postgres.DSN, "POSTGRES_DSN")
	setFromEnv(&c.ClickHouse.DSN, "CLICKHOUSE_DSN")
	setFromEnv(&c.Solana.RPCEndpoint, "SOLANA_RPC_ENDPOINT")
	setFromEnv(&c.Jupiter.BaseURL, "JUPITER_BASE_URL")
	setFromEnv(&c.Market.BaseURL, "DEXSCREENER_BASE_URL")
	setFromEnv(&c.Market.WSEndpoint, "PRICE_WS_ENDPOINT")
	setFromEnv(&c.Metrics.Addr, "METRICS_ADDR")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects parameter combinations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Checks.TestAmountSOL <= 0 {
		return fmt.Errorf("checks.test_amount_sol must be positive, got %f", c.Checks.TestAmountSOL)
	}
	if c.Checks.MaxEffectiveFee <= 0 || c.Checks.MaxEffectiveFee >= 1 {
		return fmt.Errorf("checks.max_effective_fee must be in (0, 1), got %f", c.Checks.MaxEffectiveFee)
	}
	if c.Outcome.Multiple <= 1 {
		return fmt.Errorf("outcome.multiple must exceed 1, got %f", c.Outcome.Multiple)
	}
	if c.Outcome.MaxSlippage <= 0 || c.Outcome.MaxSlippage >= 1 {
		return fmt.Errorf("outcome.max_slippage must be in (0, 1), got %f", c.Outcome.MaxSlippage)
	}
	if c.Outcome.DwellSeconds <= 0 {
		return fmt.Errorf("outcome.dwell_seconds must be positive, got %d", c.Outcome.DwellSeconds)
	}
	if c.Outcome.WindowHours <= 0 {
		return fmt.Errorf("outcome.window_hours must be positive, got %d", c.Outcome.WindowHours)
	}
	if dwell, window := c.Dwell(), c.Window(); dwell >= window {
		return fmt.Errorf("outcome.dwell_seconds %v must be shorter than the window %v", dwell, window)
	}
	if c.Engine.BatchSize <= 0 {
		return fmt.Errorf("engine.batch_size must be positive, got %d", c.Engine.BatchSize)
	}
	return nil
}

// PoolWait returns the route wait timeout as a duration.
func (c *Config) PoolWait() time.Duration {
	return time.Duration(c.Checks.PoolWaitMinutes) * time.Minute
}

// Dwell returns the sustained dwell requirement as a duration.
func (c *Config) Dwell() time.Duration {
	return time.Duration(c.Outcome.DwellSeconds) * time.Second
}

// Window returns the monitoring window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.Outcome.WindowHours) * time.Hour
}

// SampleInterval returns the monitor sweep interval as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Outcome.SampleSeconds) * time.Second
}

// Lease returns the claim lease duration.
func (c *Config) Lease() time.Duration {
	return time.Duration(c.Engine.LeaseSeconds) * time.Second
}

// PollInterval returns the resolver and validator poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Engine.PollSeconds) * time.Second
}
