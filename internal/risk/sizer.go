package risk

import (
	"autopilot/internal/analysis"
)

// Sizing policy names.
const (
	SizingConfidence = "confidence"
	SizingVolatility = "volatility"
)

// SizerConfig selects and parameterizes the position-sizing policy.
// Percentages are expressed as whole numbers (10 means 10%).
type SizerConfig struct {
	Policy          string
	MaxPositionPct  float64
	RiskPerTradePct float64
}

// Sizer converts a confidence/volatility pair into a bounded share count.
type Sizer struct {
	budget float64
	cfg    SizerConfig
}

// NewSizer builds a sizer over the configured capital base.
func NewSizer(budget float64, cfg SizerConfig) *Sizer {
	if cfg.MaxPositionPct <= 0 {
		cfg.MaxPositionPct = 10
	}
	if cfg.RiskPerTradePct <= 0 {
		cfg.RiskPerTradePct = 2
	}
	if cfg.Policy == "" {
		cfg.Policy = SizingConfidence
	}
	return &Sizer{budget: budget, cfg: cfg}
}

// Size returns the share quantity for a proposed trade. Always >= 1; the
// caller's trade validation still applies the hard cash and cap checks.
func (s *Sizer) Size(confidence, cash, price, portfolioValue float64, prices []float64) int {
	if price <= 0 {
		return 1
	}
	if s.cfg.Policy == SizingVolatility {
		return s.sizeByVolatility(price, portfolioValue, prices)
	}
	return s.sizeByConfidence(confidence, cash, price)
}

// sizeByConfidence scales a 5%-of-budget base position with confidence,
// clamps it to one share's worth, the per-position cap and a 10% cash
// buffer, then floors to whole shares.
func (s *Sizer) sizeByConfidence(confidence, cash, price float64) int {
	base := s.budget * 0.05
	scaled := base * (confidence / 0.5)
	if scaled < price {
		scaled = price
	}
	if max := s.budget * s.cfg.MaxPositionPct / 100; scaled > max {
		scaled = max
	}
	if buffered := cash * 0.9; scaled > buffered {
		scaled = buffered
	}
	qty := int(scaled / price)
	if qty < 1 {
		qty = 1
	}
	return qty
}

// sizeByVolatility risks a fixed portfolio fraction per trade against a
// 2xATR stop distance. Short history or a zero stop falls back to the
// maximum position the cap allows.
func (s *Sizer) sizeByVolatility(price, portfolioValue float64, prices []float64) int {
	maxQty := int(portfolioValue * s.cfg.MaxPositionPct / 100 / price)
	if maxQty < 1 {
		maxQty = 1
	}
	if len(prices) < analysis.DefaultPeriod {
		return maxQty
	}

	atr := analysis.ATR(prices, analysis.DefaultPeriod)
	stopDistance := atr * 2
	if stopDistance <= 0 {
		return maxQty
	}
	riskAmount := portfolioValue * s.cfg.RiskPerTradePct / 100
	qty := int(riskAmount / stopDistance)
	if qty > maxQty {
		qty = maxQty
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}
