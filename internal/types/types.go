// Package types holds the leaf data types shared across the trading core.
package types

import "strings"

// Action is a trade direction voted on by evaluators.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// NormalizeAction maps free-form action strings to a canonical Action.
// Unknown values degrade to HOLD so a malformed vote can never trade.
func NormalizeAction(raw string) Action {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "LONG", "OPEN_LONG":
		return ActionBuy
	case "SELL", "SHORT", "OPEN_SHORT":
		return ActionSell
	default:
		return ActionHold
	}
}

// Signal is one evaluator's opinion on one instrument, produced once per
// evaluator per instrument per cycle. Immutable after creation.
type Signal struct {
	EvaluatorID string  `json:"evaluator_id"`
	Action      Action  `json:"action"`
	Confidence  float64 `json:"confidence"`
	Rationale   string  `json:"rationale"`
}

// Account is the broker cash/value snapshot read once per cycle. It is never
// cached across cycles; stale values would corrupt the drawdown math.
type Account struct {
	Cash           float64 `json:"cash"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// Position is a read-only snapshot of one open position. Qty is whole shares;
// fractional broker positions are truncated at the adapter boundary.
type Position struct {
	Symbol          string  `json:"symbol"`
	Qty             int     `json:"qty"`
	MarketValue     float64 `json:"market_value"`
	UnrealizedPLPct float64 `json:"unrealized_pl_pct"`
	CurrentPrice    float64 `json:"current_price"`
}
