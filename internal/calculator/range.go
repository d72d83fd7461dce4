package calculator

// BreakoutLookback is the number of prior sessions a 52-week high spans.
const BreakoutLookback = 252

// Breakout flags closes strictly above the highest of the previous lookback closes.
// The current bar is excluded from its own window; bars without a full window are false.
func Breakout(closes []float64, lookback int) []bool {
	out := make([]bool, len(closes))
	prior := rollingMax(closes, lookback)
	for t := 1; t < len(closes); t++ {
		out[t] = prior[t-1].Less(closes[t])
	}
	return out
}
