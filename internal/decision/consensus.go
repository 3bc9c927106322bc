package decision

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"autopilot/internal/analysis"
	"autopilot/internal/logger"
	"autopilot/internal/types"
)

const defaultSignalTimeout = 30 * time.Second

// Engine fans one SignalSource call per evaluator out concurrently and
// tallies the votes. It holds no mutable cross-call state, so a single
// engine is safe to invoke for multiple instruments in parallel.
type Engine struct {
	source  SignalSource
	roster  func() []Evaluator
	quorum  int
	timeout time.Duration
}

// NewEngine builds a consensus engine. roster is called once per Evaluate so
// a hot-reloaded evaluator set takes effect on the next decision. quorum <= 0
// selects a strict majority of the roster.
func NewEngine(source SignalSource, roster func() []Evaluator, quorum int, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultSignalTimeout
	}
	return &Engine{source: source, roster: roster, quorum: quorum, timeout: timeout}
}

// Quorum resolves the effective vote threshold for n evaluators.
func (e *Engine) Quorum(n int) float64 {
	if e.quorum > 0 {
		return float64(e.quorum)
	}
	return float64(n/2 + 1)
}

// Evaluate collects every evaluator's signal for one instrument and reduces
// them to a Decision. All signals are gathered before tallying; there is no
// early exit on the first response, keeping tie-breaks deterministic.
func (e *Engine) Evaluate(ctx context.Context, symbol string, prices []float64, account types.Account) Decision {
	evals := e.roster()
	dec := Decision{Symbol: symbol, Action: types.ActionHold}
	if len(evals) == 0 {
		logger.Warnf("consensus: no evaluators configured, holding %s", symbol)
		return dec
	}

	signals := make([]types.Signal, len(evals))
	group, gctx := errgroup.WithContext(ctx)
	for i, ev := range evals {
		i, ev := i, ev
		group.Go(func() error {
			signals[i] = e.collect(gctx, ev, symbol, prices, account)
			return nil
		})
	}
	// Workers never return errors; failures fall back per evaluator.
	_ = group.Wait()

	dec.Votes = signals
	dec.Action, dec.Confidence, dec.ConsensusReached = e.tally(evals, signals)
	return dec
}

func (e *Engine) collect(ctx context.Context, ev Evaluator, symbol string, prices []float64, account types.Account) types.Signal {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	sig, err := e.source.GetSignal(cctx, ev, symbol, prices, account)
	if err != nil {
		logger.Warnf("consensus: evaluator %s failed for %s, using technical fallback: %v", ev.ID, symbol, err)
		sig = analysis.Analyze(prices)
		sig.Rationale = "fallback: " + sig.Rationale
	}
	sig.EvaluatorID = ev.ID
	sig.Action = types.NormalizeAction(string(sig.Action))
	sig.Confidence = clamp01(sig.Confidence)
	return sig
}

// tally applies weighted voting (weights default to 1, making the threshold a
// plain head count). Only BUY and SELL count toward the quorum: HOLD is the
// default outcome, not a tradable consensus. An action wins when its weight
// meets the quorum and no other action matches it; a top-weight tie resolves
// to HOLD without consensus.
func (e *Engine) tally(evals []Evaluator, signals []types.Signal) (types.Action, float64, bool) {
	weights := map[types.Action]float64{}
	confSum := map[types.Action]float64{}
	confCount := map[types.Action]int{}
	for i, sig := range signals {
		weights[sig.Action] += evals[i].VoteWeight()
		confSum[sig.Action] += sig.Confidence
		confCount[sig.Action]++
	}

	quorum := e.Quorum(len(evals))
	candidates := make([]types.Action, 0, len(weights))
	for action, w := range weights {
		if action != types.ActionHold && w >= quorum {
			candidates = append(candidates, action)
		}
	}
	if len(candidates) == 0 {
		return types.ActionHold, 0, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if weights[candidates[i]] != weights[candidates[j]] {
			return weights[candidates[i]] > weights[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > 1 && weights[candidates[0]] == weights[candidates[1]] {
		return types.ActionHold, 0, false
	}

	winner := candidates[0]
	mean := confSum[winner] / float64(confCount[winner])
	return winner, mean, true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
