package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopilot/internal/types"
)

type scriptedSource struct {
	signals map[string]types.Signal
	errs    map[string]error
	delay   time.Duration
}

func (s *scriptedSource) GetSignal(ctx context.Context, ev Evaluator, _ string, _ []float64, _ types.Account) (types.Signal, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return types.Signal{}, ctx.Err()
		}
	}
	if err, ok := s.errs[ev.ID]; ok {
		return types.Signal{}, err
	}
	return s.signals[ev.ID], nil
}

func threeEvaluators() []Evaluator {
	return []Evaluator{{ID: "jordan"}, {ID: "bohlen"}, {ID: "frodo"}}
}

func newTestEngine(src SignalSource, quorum int) *Engine {
	return NewEngine(src, threeEvaluators, quorum, time.Second)
}

func TestEvaluateBuyConsensus(t *testing.T) {
	src := &scriptedSource{signals: map[string]types.Signal{
		"jordan": {Action: types.ActionBuy, Confidence: 0.9},
		"bohlen": {Action: types.ActionBuy, Confidence: 0.7},
		"frodo":  {Action: types.ActionSell, Confidence: 0.8},
	}}
	dec := newTestEngine(src, 2).Evaluate(context.Background(), "AAPL", nil, types.Account{})

	assert.True(t, dec.ConsensusReached)
	assert.Equal(t, types.ActionBuy, dec.Action)
	assert.InDelta(t, 0.8, dec.Confidence, 1e-9, "mean of the agreeing voters")
	assert.Len(t, dec.Votes, 3)
}

func TestEvaluateNoQuorumHolds(t *testing.T) {
	src := &scriptedSource{signals: map[string]types.Signal{
		"jordan": {Action: types.ActionBuy, Confidence: 0.9},
		"bohlen": {Action: types.ActionSell, Confidence: 0.9},
		"frodo":  {Action: types.ActionHold, Confidence: 0.6},
	}}
	dec := newTestEngine(src, 2).Evaluate(context.Background(), "AAPL", nil, types.Account{})

	assert.False(t, dec.ConsensusReached)
	assert.Equal(t, types.ActionHold, dec.Action)
}

func TestEvaluateTieResolvesToHold(t *testing.T) {
	// With quorum 1 a BUY/SELL split must not trade.
	src := &scriptedSource{signals: map[string]types.Signal{
		"jordan": {Action: types.ActionBuy, Confidence: 0.9},
		"bohlen": {Action: types.ActionSell, Confidence: 0.9},
		"frodo":  {Action: types.ActionHold, Confidence: 0.6},
	}}
	dec := newTestEngine(src, 1).Evaluate(context.Background(), "AAPL", nil, types.Account{})

	assert.False(t, dec.ConsensusReached)
	assert.Equal(t, types.ActionHold, dec.Action)
}

func TestEvaluateHoldBlocIsNotConsensus(t *testing.T) {
	// A HOLD majority meets the head count but HOLD never counts toward
	// quorum: the decision stays a non-consensus HOLD with zero confidence.
	src := &scriptedSource{signals: map[string]types.Signal{
		"jordan": {Action: types.ActionHold, Confidence: 0.9},
		"bohlen": {Action: types.ActionHold, Confidence: 0.8},
		"frodo":  {Action: types.ActionBuy, Confidence: 0.9},
	}}
	dec := newTestEngine(src, 2).Evaluate(context.Background(), "AAPL", nil, types.Account{})

	assert.False(t, dec.ConsensusReached)
	assert.Equal(t, types.ActionHold, dec.Action)
	assert.Zero(t, dec.Confidence)
}

func TestEvaluateSoloQuorum(t *testing.T) {
	src := &scriptedSource{signals: map[string]types.Signal{
		"jordan": {Action: types.ActionBuy, Confidence: 0.9},
	}}
	engine := NewEngine(src, func() []Evaluator { return []Evaluator{{ID: "jordan"}} }, 1, time.Second)
	dec := engine.Evaluate(context.Background(), "AAPL", nil, types.Account{})

	assert.True(t, dec.ConsensusReached)
	assert.Equal(t, types.ActionBuy, dec.Action)
}

func TestEvaluateFallbackOnError(t *testing.T) {
	// Two evaluators fail; they fall back to the deterministic HOLD signal on
	// a flat series and the single live BUY vote misses quorum.
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}
	src := &scriptedSource{
		signals: map[string]types.Signal{
			"jordan": {Action: types.ActionBuy, Confidence: 0.9},
		},
		errs: map[string]error{
			"bohlen": errors.New("opinion service unavailable"),
			"frodo":  errors.New("opinion service unavailable"),
		},
	}
	dec := newTestEngine(src, 2).Evaluate(context.Background(), "AAPL", prices, types.Account{})

	require.Len(t, dec.Votes, 3)
	assert.False(t, dec.ConsensusReached)
	assert.Equal(t, types.ActionHold, dec.Action)
	for _, vote := range dec.Votes {
		assert.NotEmpty(t, vote.EvaluatorID)
	}
}

func TestEvaluateTimeoutFallsBack(t *testing.T) {
	src := &scriptedSource{
		delay: 200 * time.Millisecond,
		signals: map[string]types.Signal{
			"jordan": {Action: types.ActionBuy, Confidence: 0.9},
			"bohlen": {Action: types.ActionBuy, Confidence: 0.9},
			"frodo":  {Action: types.ActionBuy, Confidence: 0.9},
		},
	}
	engine := NewEngine(src, threeEvaluators, 2, 10*time.Millisecond)
	dec := engine.Evaluate(context.Background(), "AAPL", nil, types.Account{})

	// All three timed out; fallback on an empty series is HOLD.
	assert.Equal(t, types.ActionHold, dec.Action)
	assert.Len(t, dec.Votes, 3)
}

func TestQuorumDefaultsToStrictMajority(t *testing.T) {
	engine := NewEngine(&scriptedSource{}, threeEvaluators, 0, time.Second)
	assert.Equal(t, 2.0, engine.Quorum(3))
	assert.Equal(t, 3.0, engine.Quorum(5))
}
