package risk

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"autopilot/internal/types"
)

// Limits are the configured policy thresholds, all expressed in percent
// (15 means 15%).
type Limits struct {
	MaxDrawdownPct       float64
	DailyLossLimitPct    float64
	MaxSectorExposurePct float64
	MaxPositionSizePct   float64
	PerPositionStopPct   float64
}

// DefaultLimits mirrors the conservative production defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxDrawdownPct:       15,
		DailyLossLimitPct:    5,
		MaxSectorExposurePct: 30,
		MaxPositionSizePct:   10,
		PerPositionStopPct:   15,
	}
}

const sectorUnknown = "Unknown"

// Policy owns the peak-equity and day-start watermarks for one trading
// session. Every method serializes through one mutex: concurrent instrument
// evaluations within a cycle funnel into a single logical writer.
type Policy struct {
	mu      sync.Mutex
	limits  Limits
	budget  float64
	sectors map[string]string

	peakPortfolioValue float64
	dailyStartValue    float64
	dailyStartDate     string

	nowFn func() time.Time
}

// NewPolicy builds a session risk policy. budget is the configured capital
// base used for position-size caps and the drawdown floor. sectors maps
// symbols to sector names; unmapped symbols land in the Unknown bucket.
func NewPolicy(budget float64, limits Limits, sectors map[string]string) *Policy {
	if sectors == nil {
		sectors = map[string]string{}
	}
	return &Policy{
		limits:  limits,
		budget:  budget,
		sectors: sectors,
		nowFn:   time.Now,
	}
}

// Limits returns the configured thresholds.
func (p *Policy) Limits() Limits { return p.limits }

// SectorOf resolves a symbol's sector, defaulting to Unknown.
func (p *Policy) SectorOf(symbol string) string {
	if s, ok := p.sectors[strings.ToUpper(strings.TrimSpace(symbol))]; ok && s != "" {
		return s
	}
	return sectorUnknown
}

// CheckDrawdown updates the peak watermark and evaluates the drawdown limit.
// The peak never decreases. Calling it twice with the same value yields the
// same result.
func (p *Policy) CheckDrawdown(current float64) CheckResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkDrawdownLocked(current)
}

func (p *Policy) checkDrawdownLocked(current float64) CheckResult {
	if current > p.peakPortfolioValue {
		p.peakPortfolioValue = current
	}
	drawdown := 0.0
	if p.peakPortfolioValue > 0 {
		drawdown = (p.peakPortfolioValue - current) / p.peakPortfolioValue * 100
		if drawdown < 0 {
			drawdown = 0
		}
	}
	res := CheckResult{Metric: drawdown, Limit: p.limits.MaxDrawdownPct}
	switch {
	case drawdown > p.limits.MaxDrawdownPct:
		res.Message = fmt.Sprintf("max drawdown exceeded: %.1f%% (limit %.1f%%)", drawdown, p.limits.MaxDrawdownPct)
	case drawdown > p.limits.MaxDrawdownPct*0.8:
		res.OK = true
		res.Warning = true
		res.Message = fmt.Sprintf("drawdown warning: %.1f%% (limit %.1f%%)", drawdown, p.limits.MaxDrawdownPct)
	default:
		res.OK = true
		res.Message = fmt.Sprintf("drawdown ok: %.1f%%", drawdown)
	}
	return res
}

// CheckDailyLoss resets the day-start baseline on the first observation of a
// new calendar day (first observation wins) and evaluates the daily loss
// limit against it.
func (p *Policy) CheckDailyLoss(current float64) CheckResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkDailyLossLocked(current)
}

func (p *Policy) checkDailyLossLocked(current float64) CheckResult {
	today := p.nowFn().Format("2006-01-02")
	if p.dailyStartDate != today {
		p.dailyStartValue = current
		p.dailyStartDate = today
	}
	res := CheckResult{Limit: p.limits.DailyLossLimitPct}
	if p.dailyStartValue == 0 {
		res.OK = true
		res.Message = "daily loss: baseline initialized"
		return res
	}
	change := (current - p.dailyStartValue) / p.dailyStartValue * 100
	res.Metric = change
	switch {
	case change < -p.limits.DailyLossLimitPct:
		res.Message = fmt.Sprintf("daily loss limit exceeded: %.1f%% (limit -%.1f%%)", change, p.limits.DailyLossLimitPct)
	case change < -p.limits.DailyLossLimitPct*0.8:
		res.OK = true
		res.Warning = true
		res.Message = fmt.Sprintf("daily loss warning: %.1f%%", change)
	default:
		res.OK = true
		res.Message = fmt.Sprintf("daily p&l: %+.1f%%", change)
	}
	return res
}

// CheckSectorExposure sums current sector exposure plus the proposed trade
// and evaluates the affected sector's share of the portfolio. The Unknown
// bucket never blocks.
func (p *Policy) CheckSectorExposure(symbol string, proposedValue float64, positions []types.Position, portfolioValue float64) CheckResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	sector := p.SectorOf(symbol)
	exposure := map[string]float64{}
	for _, pos := range positions {
		exposure[p.SectorOf(pos.Symbol)] += pos.MarketValue
	}
	exposure[sector] += proposedValue

	res := CheckResult{Limit: p.limits.MaxSectorExposurePct}
	if portfolioValue <= 0 {
		res.OK = true
		res.Message = "sector check skipped: no portfolio value"
		return res
	}
	pct := exposure[sector] / portfolioValue * 100
	res.Metric = pct
	if sector == sectorUnknown {
		res.OK = true
		res.Message = fmt.Sprintf("sector %s at %.1f%% (unmapped, not enforced)", sector, pct)
		return res
	}
	switch {
	case pct > p.limits.MaxSectorExposurePct:
		res.Message = fmt.Sprintf("sector limit exceeded: %s at %.1f%% (limit %.1f%%)", sector, pct, p.limits.MaxSectorExposurePct)
	case pct > p.limits.MaxSectorExposurePct*0.9:
		res.OK = true
		res.Warning = true
		res.Message = fmt.Sprintf("sector warning: %s at %.1f%%", sector, pct)
	default:
		res.OK = true
		res.Message = fmt.Sprintf("sector ok: %s at %.1f%%", sector, pct)
	}
	return res
}

// ValidateTrade applies the cash and position-size caps plus the drawdown
// floor. A nil return means the trade passed.
func (p *Policy) ValidateTrade(action types.Action, qty int, price, cash, portfolioValue float64) *Reason {
	p.mu.Lock()
	defer p.mu.Unlock()

	tradeValue := float64(qty) * price
	if action == types.ActionBuy && tradeValue > cash {
		return &Reason{
			Kind:         ReasonInsufficientCash,
			Message:      fmt.Sprintf("insufficient cash: need $%.2f, have $%.2f", tradeValue, cash),
			Metric:       tradeValue,
			Limit:        cash,
			SuggestedQty: int(cash / price),
		}
	}
	maxPosition := p.budget * p.limits.MaxPositionSizePct / 100
	if tradeValue > maxPosition {
		return &Reason{
			Kind:         ReasonPositionCap,
			Message:      fmt.Sprintf("position too large: $%.2f (max $%.2f)", tradeValue, maxPosition),
			Metric:       tradeValue,
			Limit:        maxPosition,
			SuggestedQty: int(maxPosition / price),
		}
	}
	floor := p.budget * (1 - p.limits.MaxDrawdownPct/100)
	if portfolioValue < floor {
		return &Reason{
			Kind:    ReasonDrawdown,
			Message: fmt.Sprintf("portfolio below drawdown floor: $%.2f < $%.2f", portfolioValue, floor),
			Metric:  portfolioValue,
			Limit:   floor,
		}
	}
	return nil
}

// EmergencyStop evaluates the whole book once per cycle. A drawdown or daily
// loss breach liquidates everything and short-circuits the per-position scan;
// otherwise only positions past the per-position stop are named.
func (p *Policy) EmergencyStop(current float64, positions []types.Position) (bool, string, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allSymbols := func() []string {
		out := make([]string, 0, len(positions))
		for _, pos := range positions {
			out = append(out, pos.Symbol)
		}
		return out
	}

	if res := p.checkDrawdownLocked(current); !res.OK {
		return true, "emergency stop: " + res.Message, allSymbols()
	}
	if res := p.checkDailyLossLocked(current); !res.OK {
		return true, "emergency stop: " + res.Message, allSymbols()
	}

	var offenders []string
	var reasons []string
	for _, pos := range positions {
		if pos.UnrealizedPLPct < -p.limits.PerPositionStopPct {
			offenders = append(offenders, pos.Symbol)
			reasons = append(reasons, fmt.Sprintf("%s: %.1f%% loss", pos.Symbol, pos.UnrealizedPLPct))
		}
	}
	if len(offenders) > 0 {
		return true, "emergency stop: large single-position losses - " + strings.Join(reasons, ", "), offenders
	}
	return false, "all risk checks ok", nil
}

// Watermarks reports the current session watermarks for the admin surface.
func (p *Policy) Watermarks() (peak, dailyStart float64, dailyDate string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peakPortfolioValue, p.dailyStartValue, p.dailyStartDate
}
