// Package decision runs independent evaluators against an instrument and
// reduces their votes to a single consensus decision.
package decision

import (
	"context"

	"autopilot/internal/types"
)

// Evaluator is one opinion-generating participant in the consensus vote.
// Personality differences are configuration data, not subtypes: the same
// SignalSource serves every evaluator and keys off this record.
type Evaluator struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	RiskProfile string  `yaml:"risk_profile"`
	Style       string  `yaml:"style"`
	Model       string  `yaml:"model"`
	Weight      float64 `yaml:"weight"`
}

// VoteWeight returns the evaluator's voting weight, defaulting to 1.
func (e Evaluator) VoteWeight() float64 {
	if e.Weight > 0 {
		return e.Weight
	}
	return 1
}

// SignalSource produces an evaluator's raw opinion for one instrument. It may
// fail or time out; the engine substitutes the deterministic technical
// fallback rather than failing the whole decision.
type SignalSource interface {
	GetSignal(ctx context.Context, ev Evaluator, symbol string, prices []float64, account types.Account) (types.Signal, error)
}

// Decision is the reduced outcome of one instrument's evaluation in one
// cycle. Action is BUY or SELL only when the configured quorum agreed.
type Decision struct {
	Symbol           string         `json:"symbol"`
	Action           types.Action   `json:"action"`
	Confidence       float64        `json:"confidence"`
	Votes            []types.Signal `json:"votes"`
	ConsensusReached bool           `json:"consensus_reached"`
}
