package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeByConfidenceScaling(t *testing.T) {
	s := NewSizer(100000, SizerConfig{Policy: SizingConfidence})

	// base 5% of budget, scaled by confidence/0.5
	assert.Equal(t, 90, s.Size(0.9, 100000, 100, 100000, nil))
	assert.Equal(t, 50, s.Size(0.5, 100000, 100, 100000, nil))
	assert.Equal(t, 10, s.Size(0.1, 100000, 100, 100000, nil))
}

func TestSizeByConfidenceBounds(t *testing.T) {
	budget := 100000.0
	cash := 100000.0
	price := 100.0
	s := NewSizer(budget, SizerConfig{Policy: SizingConfidence, MaxPositionPct: 10})

	for conf := 0.0; conf <= 1.0; conf += 0.05 {
		qty := s.Size(conf, cash, price, budget, nil)
		assert.GreaterOrEqual(t, qty, 1, "confidence %.2f", conf)

		value := float64(qty) * price
		assert.LessOrEqual(t, value, budget*0.10, "confidence %.2f", conf)
		assert.LessOrEqual(t, value, cash*0.9, "confidence %.2f", conf)
	}
}

func TestSizeByConfidenceCashBuffer(t *testing.T) {
	s := NewSizer(100000, SizerConfig{Policy: SizingConfidence})

	// full conviction but only $500 cash: 90% buffer allows 4 shares at $100
	assert.Equal(t, 4, s.Size(1.0, 500, 100, 100000, nil))

	// too little cash for even one share still sizes to 1; the trade
	// validation layer rejects it downstream
	assert.Equal(t, 1, s.Size(1.0, 50, 100, 100000, nil))
}

func TestSizeByVolatilityShortHistoryFallsBackToCap(t *testing.T) {
	s := NewSizer(100000, SizerConfig{Policy: SizingVolatility, MaxPositionPct: 10, RiskPerTradePct: 2})

	qty := s.Size(0.9, 100000, 100, 100000, []float64{100})
	assert.Equal(t, 100, qty)
}

func TestSizeByVolatilityFlatSeriesFallsBackToCap(t *testing.T) {
	s := NewSizer(100000, SizerConfig{Policy: SizingVolatility, MaxPositionPct: 10, RiskPerTradePct: 2})

	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}
	assert.Equal(t, 100, s.Size(0.9, 100000, 100, 100000, prices))
}

func TestSizeByVolatilityShrinksWithSwings(t *testing.T) {
	s := NewSizer(100000, SizerConfig{Policy: SizingVolatility, MaxPositionPct: 10, RiskPerTradePct: 2})

	// alternating +/-15 swings ending at 100: ATR 15, stop distance 30,
	// risking 2% of $100k gives 66 shares, well under the 100-share cap
	prices := make([]float64, 31)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 100
		} else {
			prices[i] = 115
		}
	}
	assert.Equal(t, 66, s.Size(0.9, 100000, 100, 100000, prices))
}

func TestNewSizerDefaults(t *testing.T) {
	s := NewSizer(100000, SizerConfig{})
	assert.Equal(t, SizingConfidence, s.cfg.Policy)
	assert.Equal(t, 10.0, s.cfg.MaxPositionPct)
	assert.Equal(t, 2.0, s.cfg.RiskPerTradePct)
}
