package decision

import (
	"context"

	"autopilot/internal/analysis"
	"autopilot/internal/types"
)

// TechnicalSource is the indicator-only SignalSource used when no opinion
// service is configured. Every evaluator receives the same deterministic
// signal, so solo deployments degrade to a pure momentum strategy.
type TechnicalSource struct{}

func (TechnicalSource) GetSignal(_ context.Context, ev Evaluator, _ string, prices []float64, _ types.Account) (types.Signal, error) {
	sig := analysis.Analyze(prices)
	sig.EvaluatorID = ev.ID
	return sig, nil
}
