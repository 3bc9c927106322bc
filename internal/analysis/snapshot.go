package analysis

import (
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"
)

// Snapshot is the extended indicator view handed to remote evaluators as
// prompt context. Unlike the signal policy above it uses true exponential
// smoothing, so it complements rather than replaces Analyze.
type Snapshot struct {
	Last     float64
	EMAFast  float64
	EMAMid   float64
	EMASlow  float64
	RSI      float64
	MACDHist float64
	ROC      float64
	Points   int
}

const snapshotMinPoints = 40

// NewSnapshot computes the extended indicators for a close series. Series
// shorter than the slowest window yield a zero-valued snapshot with only
// Last and Points populated.
func NewSnapshot(closes []float64) Snapshot {
	snap := Snapshot{Points: len(closes)}
	if len(closes) == 0 {
		return snap
	}
	snap.Last = closes[len(closes)-1]
	if len(closes) < snapshotMinPoints {
		return snap
	}
	snap.EMAFast = lastValid(talib.Ema(closes, 9))
	snap.EMAMid = lastValid(talib.Ema(closes, 21))
	snap.EMASlow = lastValid(talib.Ema(closes, 34))
	snap.RSI = lastValid(talib.Rsi(closes, DefaultPeriod))
	_, _, hist := talib.Macd(closes, 12, 26, 9)
	snap.MACDHist = lastValid(hist)
	snap.ROC = lastValid(talib.Roc(closes, 9))
	return snap
}

// Render formats the snapshot as a compact single-line context string.
func (s Snapshot) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "last=%.2f points=%d", s.Last, s.Points)
	if s.EMAFast != 0 || s.EMASlow != 0 {
		fmt.Fprintf(&b, " ema9=%.2f ema21=%.2f ema34=%.2f", s.EMAFast, s.EMAMid, s.EMASlow)
		fmt.Fprintf(&b, " rsi=%.1f macd_hist=%.3f roc=%.2f", s.RSI, s.MACDHist, s.ROC)
	}
	return b.String()
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != 0 {
			return series[i]
		}
	}
	return 0
}
