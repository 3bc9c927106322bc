package config

import "time"

// Config is the root configuration carrier.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Broker    BrokerConfig    `yaml:"broker"`
	Opinion   OpinionConfig   `yaml:"opinion"`
	Decision  DecisionConfig  `yaml:"decision"`
	Autopilot AutopilotConfig `yaml:"autopilot"`
	Risk      RiskConfig      `yaml:"risk"`
	Store     StoreConfig     `yaml:"store"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`
	LogPath  string `yaml:"log_path"`
}

// BrokerConfig selects the execution venue. API credentials may be left
// empty here and supplied through the environment instead.
type BrokerConfig struct {
	Provider          string  `yaml:"provider"` // "alpaca" | "paper"
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	APISecret         string  `yaml:"api_secret"`
	PaperStartingCash float64 `yaml:"paper_starting_cash"`
}

// OpinionConfig points at the chat gateway shared by all evaluators. When
// disabled, every evaluator falls back to the deterministic technical signal.
type OpinionConfig struct {
	Enabled        bool              `yaml:"enabled"`
	BaseURL        string            `yaml:"base_url"`
	APIKey         string            `yaml:"api_key"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	MaxRetries     int               `yaml:"max_retries"`
	Headers        map[string]string `yaml:"headers"`
}

type DecisionConfig struct {
	Quorum                  int    `yaml:"quorum"`
	EvaluatorTimeoutSeconds int    `yaml:"evaluator_timeout_seconds"`
	EvaluatorsPath          string `yaml:"evaluators_path"`
}

type AutopilotConfig struct {
	Enabled             bool              `yaml:"enabled"`
	DryRun              bool              `yaml:"dry_run"`
	IntervalSeconds     int               `yaml:"interval_seconds"`
	CycleTimeoutSeconds int               `yaml:"cycle_timeout_seconds"`
	RunImmediately      bool              `yaml:"run_immediately"`
	EnforceMarketHours  bool              `yaml:"enforce_market_hours"`
	HistoryBars         int               `yaml:"history_bars"`
	Watchlist           []string          `yaml:"watchlist"`
	Constraints         ConstraintsConfig `yaml:"constraints"`
}

// ConstraintsConfig filters the watch-list before each cycle.
type ConstraintsConfig struct {
	ExcludeSymbols []string `yaml:"exclude_symbols"`
	ExcludeSectors []string `yaml:"exclude_sectors"`
}

func (a AutopilotConfig) Interval() time.Duration {
	return time.Duration(a.IntervalSeconds) * time.Second
}

func (a AutopilotConfig) CycleTimeout() time.Duration {
	return time.Duration(a.CycleTimeoutSeconds) * time.Second
}

type RiskConfig struct {
	Budget               float64           `yaml:"budget"`
	MaxDrawdownPct       float64           `yaml:"max_drawdown_pct"`
	DailyLossLimitPct    float64           `yaml:"daily_loss_limit_pct"`
	MaxSectorExposurePct float64           `yaml:"max_sector_exposure_pct"`
	MaxPositionSizePct   float64           `yaml:"max_position_size_pct"`
	PerPositionStopPct   float64           `yaml:"per_position_stop_pct"`
	Sizing               SizingConfig      `yaml:"sizing"`
	Sectors              map[string]string `yaml:"sectors"`
}

type SizingConfig struct {
	Policy          string  `yaml:"policy"` // "confidence" | "volatility"
	MaxPositionPct  float64 `yaml:"max_position_pct"`
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}
