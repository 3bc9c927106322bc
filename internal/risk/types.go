// Package risk gates raw consensus decisions through position sizing and a
// multi-layer limit policy before anything reaches the broker.
package risk

import "autopilot/internal/types"

// ReasonKind tags the limit a rejected trade violated.
type ReasonKind string

const (
	ReasonInsufficientCash ReasonKind = "insufficient_cash"
	ReasonPositionCap      ReasonKind = "position_cap"
	ReasonSectorCap        ReasonKind = "sector_cap"
	ReasonDrawdown         ReasonKind = "drawdown"
	ReasonDailyLoss        ReasonKind = "daily_loss"
	ReasonCycleCancelled   ReasonKind = "cycle_cancelled"
)

// Reason carries the computed metric alongside the limit it violated, plus a
// suggested quantity where a smaller order would have passed.
type Reason struct {
	Kind         ReasonKind `json:"kind"`
	Message      string     `json:"message"`
	Metric       float64    `json:"metric"`
	Limit        float64    `json:"limit"`
	SuggestedQty int        `json:"suggested_qty,omitempty"`
}

// Rejection is a normal control-flow outcome, not an error. It is recorded in
// the cycle report and never retried.
type Rejection struct {
	Symbol string `json:"symbol"`
	Reason Reason `json:"reason"`
}

// AdmittedOrder is a decision that cleared every risk layer, bounded and
// priced. Immutable once created.
type AdmittedOrder struct {
	Symbol    string       `json:"symbol"`
	Action    types.Action `json:"action"`
	Qty       int          `json:"qty"`
	Price     float64      `json:"price"`
	RiskScore float64      `json:"risk_score"`
	RiskLevel string       `json:"risk_level"`
	OrderID   string       `json:"order_id,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// CheckResult is the outcome of one independent policy check.
type CheckResult struct {
	OK      bool    `json:"ok"`
	Warning bool    `json:"warning"`
	Message string  `json:"message"`
	Metric  float64 `json:"metric"`
	Limit   float64 `json:"limit"`
}
