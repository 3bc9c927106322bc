package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.Broker.validate(); err != nil {
		return err
	}
	if err := c.Opinion.validate(); err != nil {
		return err
	}
	if err := c.Decision.validate(); err != nil {
		return err
	}
	if err := c.Autopilot.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (b *BrokerConfig) validate() error {
	switch b.Provider {
	case "paper":
		return nil
	case "alpaca":
		if strings.TrimSpace(b.APIKey) == "" || strings.TrimSpace(b.APISecret) == "" {
			return fmt.Errorf("broker.alpaca requires api_key and api_secret")
		}
		return nil
	default:
		return fmt.Errorf("broker.provider only supports 'alpaca' or 'paper', got %s", b.Provider)
	}
}

func (o *OpinionConfig) validate() error {
	if !o.Enabled {
		return nil
	}
	if strings.TrimSpace(o.BaseURL) == "" {
		return fmt.Errorf("opinion.base_url cannot be empty when opinion is enabled")
	}
	return nil
}

func (d *DecisionConfig) validate() error {
	if d.Quorum < 0 {
		return fmt.Errorf("decision.quorum must be >= 0")
	}
	return nil
}

func (a *AutopilotConfig) validate() error {
	if a.IntervalSeconds < 60 {
		return fmt.Errorf("autopilot.interval_seconds must be >= 60")
	}
	if a.CycleTimeoutSeconds >= a.IntervalSeconds {
		return fmt.Errorf("autopilot.cycle_timeout_seconds must be shorter than the interval")
	}
	for _, symbol := range a.Watchlist {
		if strings.TrimSpace(symbol) == "" {
			return fmt.Errorf("autopilot.watchlist contains an empty symbol")
		}
	}
	return nil
}

func (r *RiskConfig) validate() error {
	pcts := map[string]float64{
		"risk.max_drawdown_pct":        r.MaxDrawdownPct,
		"risk.daily_loss_limit_pct":    r.DailyLossLimitPct,
		"risk.max_sector_exposure_pct": r.MaxSectorExposurePct,
		"risk.max_position_size_pct":   r.MaxPositionSizePct,
		"risk.per_position_stop_pct":   r.PerPositionStopPct,
	}
	for key, v := range pcts {
		if v <= 0 || v > 100 {
			return fmt.Errorf("%s must be in (0, 100]", key)
		}
	}
	switch r.Sizing.Policy {
	case "confidence", "volatility":
	default:
		return fmt.Errorf("risk.sizing.policy only supports 'confidence' or 'volatility', got %s", r.Sizing.Policy)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}
