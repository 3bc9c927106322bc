package config

import "os"

// applyDefaults fills zero values with the production defaults. Credentials
// left blank in the file are taken from the environment so secrets stay out
// of checked-in configs.
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8080"
	}

	if c.Broker.Provider == "" {
		c.Broker.Provider = "paper"
	}
	if c.Broker.PaperStartingCash <= 0 {
		c.Broker.PaperStartingCash = 100000
	}
	if c.Broker.APIKey == "" {
		c.Broker.APIKey = os.Getenv("ALPACA_API_KEY")
	}
	if c.Broker.APISecret == "" {
		c.Broker.APISecret = os.Getenv("ALPACA_SECRET_KEY")
	}

	if c.Opinion.APIKey == "" {
		c.Opinion.APIKey = os.Getenv("OPINION_API_KEY")
	}
	if c.Opinion.TimeoutSeconds <= 0 {
		c.Opinion.TimeoutSeconds = 60
	}
	if c.Opinion.MaxRetries <= 0 {
		c.Opinion.MaxRetries = 2
	}

	if c.Decision.EvaluatorTimeoutSeconds <= 0 {
		c.Decision.EvaluatorTimeoutSeconds = 30
	}
	if c.Decision.EvaluatorsPath == "" {
		c.Decision.EvaluatorsPath = "configs/evaluators.yaml"
	}

	if c.Autopilot.IntervalSeconds <= 0 {
		c.Autopilot.IntervalSeconds = 300
	}
	if c.Autopilot.CycleTimeoutSeconds <= 0 {
		c.Autopilot.CycleTimeoutSeconds = c.Autopilot.IntervalSeconds / 2
	}
	if c.Autopilot.HistoryBars <= 0 {
		c.Autopilot.HistoryBars = 60
	}

	if c.Risk.Budget <= 0 {
		c.Risk.Budget = 100000
	}
	if c.Risk.MaxDrawdownPct <= 0 {
		c.Risk.MaxDrawdownPct = 15
	}
	if c.Risk.DailyLossLimitPct <= 0 {
		c.Risk.DailyLossLimitPct = 5
	}
	if c.Risk.MaxSectorExposurePct <= 0 {
		c.Risk.MaxSectorExposurePct = 30
	}
	if c.Risk.MaxPositionSizePct <= 0 {
		c.Risk.MaxPositionSizePct = 10
	}
	if c.Risk.PerPositionStopPct <= 0 {
		c.Risk.PerPositionStopPct = 15
	}
	if c.Risk.Sizing.Policy == "" {
		c.Risk.Sizing.Policy = "confidence"
	}
	if c.Risk.Sizing.MaxPositionPct <= 0 {
		c.Risk.Sizing.MaxPositionPct = c.Risk.MaxPositionSizePct
	}
	if c.Risk.Sizing.RiskPerTradePct <= 0 {
		c.Risk.Sizing.RiskPerTradePct = 2
	}

	if c.Store.Path == "" {
		c.Store.Path = "data/autopilot.db"
	}

	if c.Notify.Telegram.BotToken == "" {
		c.Notify.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if c.Notify.Telegram.ChatID == "" {
		c.Notify.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	}
}
