package config

// Config is the top-level YAML structure.
type Config struct {
	Postgres   PostgresConf   `yaml:"postgres"`
	ClickHouse ClickHouseConf `yaml:"clickhouse"`
	Solana     SolanaConf     `yaml:"solana"`
	Jupiter    JupiterConf    `yaml:"jupiter"`
	Market     MarketConf     `yaml:"market"`
	Checks     ChecksConf     `yaml:"checks"`
	Outcome    OutcomeConf    `yaml:"outcome"`
	Engine     EngineConf     `yaml:"engine"`
	Metrics    MetricsConf    `yaml:"metrics"`
}

// PostgresConf holds control-plane database settings.
type PostgresConf struct {
	DSN string `yaml:"dsn"`
}

// ClickHouseConf holds the price sample archive settings. An empty DSN
// disables archiving.
type ClickHouseConf struct {
	DSN string `yaml:"dsn"`
}

// SolanaConf holds RPC settings.
type SolanaConf struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`
}

// JupiterConf holds quote API settings.
type JupiterConf struct {
	BaseURL string `yaml:"base_url"`
}

// MarketConf holds market data settings. WSEndpoint is optional; when
// set the monitor consumes the price stream instead of polling.
type MarketConf struct {
	BaseURL    string `yaml:"base_url"`
	WSEndpoint string `yaml:"ws_endpoint"`
}

// ChecksConf holds acceptance check parameters.
type ChecksConf struct {
	TestAmountSOL      float64 `yaml:"test_amount_sol"`
	MaxEffectiveFee    float64 `yaml:"max_effective_fee"`
	PoolWaitMinutes    int     `yaml:"pool_wait_minutes"`
	TopHolders         int     `yaml:"top_holders"`
	MaxTopShare        float64 `yaml:"max_top_share"`
	ConcentrationCheck bool    `yaml:"concentration_check"`
}

// OutcomeConf holds outcome labeling parameters.
type OutcomeConf struct {
	Multiple      float64 `yaml:"multiple"`
	DwellSeconds  int     `yaml:"dwell_seconds"`
	WindowHours   int     `yaml:"window_hours"`
	MaxSlippage   float64 `yaml:"max_slippage"`
	SampleSeconds int     `yaml:"sample_seconds"`
}

// EngineConf holds worker coordination settings.
type EngineConf struct {
	LeaseSeconds int `yaml:"lease_seconds"`
	BatchSize    int `yaml:"batch_size"`
	PollSeconds  int `yaml:"poll_seconds"`
}

// MetricsConf holds the Prometheus endpoint settings.
type MetricsConf struct {
	Addr string `yaml:"addr"`
}
