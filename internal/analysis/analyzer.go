// Package analysis computes deterministic technical indicators over a close
// price series. It is side-effect free and doubles as the fallback signal
// source when a remote evaluator is unavailable.
package analysis

import (
	"fmt"
	"math"

	"autopilot/internal/types"
)

const (
	// DefaultPeriod drives the oscillator and ATR windows.
	DefaultPeriod = 14
	// momentumPeriod matches the momentum lookback of the signal policy.
	momentumPeriod = 10

	crossoverFast = 12
	crossoverSlow = 26

	minAnalyzePoints = 20
)

// Momentum returns the percent change of the last price against the price
// `period` points back. Returns 0 when the series is too short.
func Momentum(prices []float64, period int) float64 {
	n := len(prices)
	if period <= 0 || n < period {
		return 0
	}
	base := prices[n-period]
	if base == 0 {
		return 0
	}
	return (prices[n-1] - base) / base * 100
}

// Oscillator is an RSI-like indicator on 0..100: mean positive delta over
// mean negative delta across the last `period` deltas. Neutral 50 when the
// history is shorter than period+1 points; 100 when no losses were observed.
func Oscillator(prices []float64, period int) float64 {
	n := len(prices)
	if period <= 0 || n <= period {
		return 50
	}
	gains := 0.0
	losses := 0.0
	for i := n - period; i < n; i++ {
		diff := prices[i] - prices[i-1]
		if diff > 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR approximates the average true range from closes only:
// TR[i] = |close[i]-close[i-1]|, averaged over the last `period` deltas.
// With fewer than period+1 points it falls back to the standard deviation of
// the available prices, or 0.02*last when only a single point exists.
func ATR(prices []float64, period int) float64 {
	n := len(prices)
	if n == 0 {
		return 0
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	if n < period+1 {
		if n == 1 {
			return prices[0] * 0.02
		}
		return stdDev(prices)
	}
	sum := 0.0
	for i := n - period; i < n; i++ {
		sum += math.Abs(prices[i] - prices[i-1])
	}
	return sum / float64(period)
}

// Crossover is a windowed-mean MACD proxy: mean of the last 12 closes minus
// mean of the last 26, with the histogram defined as 20% of that spread.
// The smoothing is a tunable approximation, not an exact EMA contract.
func Crossover(prices []float64) float64 {
	if len(prices) < crossoverSlow {
		return 0
	}
	macd := windowMean(prices, crossoverFast) - windowMean(prices, crossoverSlow)
	signal := macd * 0.8
	return macd - signal
}

// Analyze runs the momentum signal policy over the series:
//   - fewer than 20 points -> HOLD 0.5
//   - oscillator < 35, momentum > 0, crossover > 0 -> BUY 0.8
//   - oscillator > 65, momentum < 0, crossover < 0 -> SELL 0.8
//   - otherwise HOLD 0.6
func Analyze(prices []float64) types.Signal {
	if len(prices) < minAnalyzePoints {
		return types.Signal{
			Action:     types.ActionHold,
			Confidence: 0.5,
			Rationale:  "insufficient price history",
		}
	}

	osc := Oscillator(prices, DefaultPeriod)
	momentum := Momentum(prices, momentumPeriod)
	hist := Crossover(prices)

	if osc < 35 && momentum > 0 && hist > 0 {
		return types.Signal{
			Action:     types.ActionBuy,
			Confidence: 0.8,
			Rationale:  fmt.Sprintf("oscillator oversold (%.1f), positive momentum (%.1f%%), bullish crossover", osc, momentum),
		}
	}
	if osc > 65 && momentum < 0 && hist < 0 {
		return types.Signal{
			Action:     types.ActionSell,
			Confidence: 0.8,
			Rationale:  fmt.Sprintf("oscillator overbought (%.1f), negative momentum (%.1f%%), bearish crossover", osc, momentum),
		}
	}
	return types.Signal{
		Action:     types.ActionHold,
		Confidence: 0.6,
		Rationale:  fmt.Sprintf("no clear signal (oscillator %.1f, momentum %.1f%%)", osc, momentum),
	}
}

func windowMean(prices []float64, window int) float64 {
	n := len(prices)
	if window <= 0 || n < window {
		return 0
	}
	sum := 0.0
	for i := n - window; i < n; i++ {
		sum += prices[i]
	}
	return sum / float64(window)
}

func stdDev(prices []float64) float64 {
	n := len(prices)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, p := range prices {
		mean += p
	}
	mean /= float64(n)
	variance := 0.0
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(n))
}
