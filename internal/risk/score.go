package risk

// Score is a 0-100 composite rating of a proposed trade; higher is safer.
type Score struct {
	Value          float64 `json:"value"`
	Level          string  `json:"level"`
	Recommendation string  `json:"recommendation"`
}

// ScoreTrade combines evaluator confidence (0..1), sentiment and technical
// scores (-1..+1) and volatility (fraction of price) into four components of
// up to 25 points each.
func ScoreTrade(confidence, sentiment, technical, volatility float64) Score {
	confidenceScore := clamp01(confidence) * 25
	sentimentScore := (clampSigned(sentiment) + 1) / 2 * 25
	technicalScore := (clampSigned(technical) + 1) / 2 * 25

	volPct := volatility * 100
	var volatilityScore float64
	switch {
	case volPct < 1:
		volatilityScore = 25
	case volPct < 3:
		volatilityScore = 15
	case volPct < 5:
		volatilityScore = 10
	default:
		volatilityScore = 5
	}

	total := confidenceScore + sentimentScore + technicalScore + volatilityScore
	score := Score{Value: total}
	switch {
	case total >= 75:
		score.Level = "LOW"
		score.Recommendation = "good risk/reward"
	case total >= 50:
		score.Level = "MEDIUM"
		score.Recommendation = "moderate risk"
	default:
		score.Level = "HIGH"
		score.Recommendation = "high risk, not recommended"
	}
	return score
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

func clampSigned(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}
