package risk

import (
	"autopilot/internal/analysis"
	"autopilot/internal/decision"
	"autopilot/internal/logger"
	"autopilot/internal/types"
)

// Gate composes the position sizer and the limit policy: a raw consensus
// decision goes in, a bounded admitted order or a tagged rejection comes out.
// Dry-run and live cycles share this path unchanged.
type Gate struct {
	policy *Policy
	sizer  *Sizer
}

// Outcome is either an admitted order, a rejection, or neither (HOLD or no
// consensus: nothing to gate).
type Outcome struct {
	Order     *AdmittedOrder
	Rejection *Rejection
}

func NewGate(policy *Policy, sizer *Sizer) *Gate {
	return &Gate{policy: policy, sizer: sizer}
}

// Admit validates one decision against the full risk stack. Session-level
// checks (drawdown, daily loss) run before position-level ones; the first
// breach wins.
func (g *Gate) Admit(dec decision.Decision, account types.Account, positions []types.Position, prices []float64) Outcome {
	if !dec.ConsensusReached || dec.Action == types.ActionHold {
		return Outcome{}
	}
	if len(prices) == 0 {
		logger.Warnf("risk gate: no price data for %s, dropping decision", dec.Symbol)
		return Outcome{}
	}
	price := prices[len(prices)-1]

	if res := g.policy.CheckDrawdown(account.PortfolioValue); !res.OK {
		return reject(dec.Symbol, Reason{Kind: ReasonDrawdown, Message: res.Message, Metric: res.Metric, Limit: res.Limit})
	} else if res.Warning {
		logger.Warnf("risk gate: %s", res.Message)
	}
	if res := g.policy.CheckDailyLoss(account.PortfolioValue); !res.OK {
		return reject(dec.Symbol, Reason{Kind: ReasonDailyLoss, Message: res.Message, Metric: res.Metric, Limit: res.Limit})
	} else if res.Warning {
		logger.Warnf("risk gate: %s", res.Message)
	}

	qty := g.sizer.Size(dec.Confidence, account.Cash, price, account.PortfolioValue, prices)
	if reason := g.policy.ValidateTrade(dec.Action, qty, price, account.Cash, account.PortfolioValue); reason != nil {
		return reject(dec.Symbol, *reason)
	}

	if dec.Action == types.ActionBuy {
		proposed := float64(qty) * price
		if res := g.policy.CheckSectorExposure(dec.Symbol, proposed, positions, account.PortfolioValue); !res.OK {
			return reject(dec.Symbol, Reason{Kind: ReasonSectorCap, Message: res.Message, Metric: res.Metric, Limit: res.Limit})
		} else if res.Warning {
			logger.Warnf("risk gate: %s", res.Message)
		}
	}

	atr := analysis.ATR(prices, analysis.DefaultPeriod)
	volatility := 0.0
	if price > 0 {
		volatility = atr / price
	}
	technical := (50 - analysis.Oscillator(prices, analysis.DefaultPeriod)) / 50
	if dec.Action == types.ActionSell {
		technical = -technical
	}
	score := ScoreTrade(dec.Confidence, 0, technical, volatility)

	return Outcome{Order: &AdmittedOrder{
		Symbol:    dec.Symbol,
		Action:    dec.Action,
		Qty:       qty,
		Price:     price,
		RiskScore: score.Value,
		RiskLevel: score.Level,
	}}
}

func reject(symbol string, reason Reason) Outcome {
	return Outcome{Rejection: &Rejection{Symbol: symbol, Reason: reason}}
}
