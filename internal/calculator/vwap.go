package calculator

import "SignalEngine/internal/model"

// VWAP is the rolling volume-weighted typical price, (close+high+low)/3, over period bars.
// Windows that are not yet full or that traded no volume are undefined.
func VWAP(bars []model.OHLCV, period int) []model.NullFloat {
	pv := make([]float64, len(bars))
	for i, b := range bars {
		pv[i] = (b.Close + b.High + b.Low) / 3 * b.Volume
	}
	pvSum := rollingSum(pv, period)
	volSum := rollingSum(extractVolumes(bars), period)

	out := make([]model.NullFloat, len(bars))
	for i := range out {
		if !pvSum[i].Valid || !volSum[i].Valid || volSum[i].Float64 == 0 {
			continue
		}
		out[i] = model.Float(pvSum[i].Float64 / volSum[i].Float64)
	}
	return out
}
