package opinion

import (
	"context"
	"fmt"
	"strings"

	"autopilot/internal/analysis"
	"autopilot/internal/decision"
	"autopilot/internal/types"
)

// Source implements decision.SignalSource over a chat gateway. One client is
// shared across personas; each evaluator supplies its own model and tone.
type Source struct {
	client *ChatClient
}

func NewSource(client *ChatClient) *Source {
	return &Source{client: client}
}

func (s *Source) GetSignal(ctx context.Context, ev decision.Evaluator, symbol string, prices []float64, account types.Account) (types.Signal, error) {
	reply, err := s.client.Complete(ctx, ev.Model, systemPrompt(ev), userPrompt(symbol, prices, account))
	if err != nil {
		return types.Signal{}, err
	}
	sig, err := ParseSignal(reply)
	if err != nil {
		return types.Signal{}, fmt.Errorf("evaluator %s: %w", ev.ID, err)
	}
	sig.EvaluatorID = ev.ID
	return sig, nil
}

func systemPrompt(ev decision.Evaluator) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s equity analyst", displayName(ev), riskProfile(ev))
	if ev.Style != "" {
		fmt.Fprintf(&b, " with a %s style", ev.Style)
	}
	b.WriteString(".\n")
	b.WriteString("Assess the instrument below and answer with exactly one JSON object:\n")
	b.WriteString(`{"action":"BUY"|"SELL"|"HOLD","confidence":<0.0-1.0>,"rationale":"<one sentence>"}` + "\n")
	b.WriteString("No prose outside the JSON object.")
	return b.String()
}

func userPrompt(symbol string, prices []float64, account types.Account) string {
	snap := analysis.NewSnapshot(prices)
	var b strings.Builder
	fmt.Fprintf(&b, "Instrument: %s\n", symbol)
	fmt.Fprintf(&b, "Indicators: %s\n", snap.Render())
	fmt.Fprintf(&b, "Account: cash=$%.2f portfolio=$%.2f\n", account.Cash, account.PortfolioValue)
	return b.String()
}

func displayName(ev decision.Evaluator) string {
	if ev.Name != "" {
		return ev.Name
	}
	return ev.ID
}

func riskProfile(ev decision.Evaluator) string {
	if ev.RiskProfile != "" {
		return ev.RiskProfile
	}
	return "balanced"
}
