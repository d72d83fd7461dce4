package calculator

import (
	"math"

	"SignalEngine/internal/model"
)

// patternRule recognises one bullish setup confirmed on bar t.
type patternRule struct {
	label model.CandlePattern
	match func(bars []model.OHLCV, atr []float64, t int) bool
}

// patternRules is ordered by priority; the first match labels the bar.
var patternRules = []patternRule{
	{model.PatternInsideBreak, isInsideBreak},
	{model.PatternHammer, isHammer},
	{model.PatternEngulf, isEngulfing},
}

// DetectPatterns labels every bar with the highest-priority bullish setup formed by
// the bars before it, or PatternNone.
func DetectPatterns(bars []model.OHLCV, atr []float64) []model.CandlePattern {
	out := make([]model.CandlePattern, len(bars))
	for t := range bars {
		out[t] = model.PatternNone
		for _, r := range patternRules {
			if r.match(bars, atr, t) {
				out[t] = r.label
				break
			}
		}
	}
	return out
}

// isEngulfing: a red bar at t-2 whose body is swallowed by a green bar at t-1,
// with the red body at least a fifth of the ATR.
func isEngulfing(bars []model.OHLCV, atr []float64, t int) bool {
	if t < 2 || len(atr) < t {
		return false
	}
	red, green := bars[t-2], bars[t-1]
	return red.Open > red.Close &&
		green.Close > green.Open &&
		green.Open <= red.Close &&
		green.Close >= red.Open &&
		math.Abs(red.Close-red.Open) >= 0.2*atr[t-1]
}

// isHammer: bar t-1 has a small body near its high, a long lower wick and a low
// under the two bars before it.
func isHammer(bars []model.OHLCV, _ []float64, t int) bool {
	if t < 3 {
		return false
	}
	b := bars[t-1]
	rng := b.High - b.Low
	if rng <= 0 {
		return false
	}
	body := math.Abs(b.Close - b.Open)
	upperWick := b.High - math.Max(b.Open, b.Close)
	lowerWick := math.Min(b.Open, b.Close) - b.Low
	return body <= 0.4*rng &&
		lowerWick >= 2.0*body &&
		upperWick <= 0.25*body &&
		(b.Close-b.Low)/rng >= 0.6 &&
		b.Low <= math.Min(bars[t-2].Low, bars[t-3].Low)
}

// isInsideBreak: bar t-1 sits inside bar t-2 and bar t closes above it.
func isInsideBreak(bars []model.OHLCV, _ []float64, t int) bool {
	if t < 2 {
		return false
	}
	inside, mother := bars[t-1], bars[t-2]
	return inside.High <= mother.High &&
		inside.Low >= mother.Low &&
		bars[t].Close > inside.High
}
