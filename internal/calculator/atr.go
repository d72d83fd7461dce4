package calculator

import (
	"math"

	"SignalEngine/internal/model"
)

// ATRPeriod is the fixed lookback of the volatility filter used by pattern detection.
const ATRPeriod = 14

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|); the first bar uses high-low.
func trueRange(bars []model.OHLCV) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		tr[i] = b.High - b.Low
		if i == 0 {
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(tr[i], math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return tr
}

// ATR smooths the true range exponentially with the given span.
func ATR(bars []model.OHLCV, period int) []float64 {
	return ewm(trueRange(bars), spanAlpha(period))
}

// DirectionalIndex returns +DI and -DI. A bar whose smoothed true range is zero has
// both undefined.
func DirectionalIndex(bars []model.OHLCV, period int) (plusDI, minusDI []model.NullFloat) {
	n := len(bars)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	alpha := spanAlpha(period)
	atr := ewm(trueRange(bars), alpha)
	smoothPlus := ewm(plusDM, alpha)
	smoothMinus := ewm(minusDM, alpha)

	plusDI = make([]model.NullFloat, n)
	minusDI = make([]model.NullFloat, n)
	for i := range atr {
		if atr[i] == 0 {
			continue
		}
		plusDI[i] = model.Float(100 * smoothPlus[i] / atr[i])
		minusDI[i] = model.Float(100 * smoothMinus[i] / atr[i])
	}
	return plusDI, minusDI
}

// ADX computes the average directional index. Bars where +DI and -DI sum to zero
// (or are undefined) have no DX; they stay undefined and do not move the average.
func ADX(bars []model.OHLCV, period int) []model.NullFloat {
	plusDI, minusDI := DirectionalIndex(bars, period)
	dx := make([]model.NullFloat, len(bars))
	for i := range dx {
		if !plusDI[i].Valid || !minusDI[i].Valid {
			continue
		}
		sum := plusDI[i].Float64 + minusDI[i].Float64
		if sum == 0 {
			continue
		}
		dx[i] = model.Float(100 * math.Abs(plusDI[i].Float64-minusDI[i].Float64) / sum)
	}
	return ewmNull(dx, spanAlpha(period))
}
