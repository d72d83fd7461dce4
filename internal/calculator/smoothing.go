package calculator

import "SignalEngine/internal/model"

// spanAlpha converts a span to the smoothing factor 2/(span+1).
func spanAlpha(span int) float64 {
	return 2.0 / float64(span+1)
}

// ewm is the recursive exponential average seeded with the first value:
// y[0] = x[0], y[t] = (1-alpha)*y[t-1] + alpha*x[t].
func ewm(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = (1-alpha)*out[i-1] + alpha*v
	}
	return out
}

// ewmNull is ewm over optional inputs. An undefined input leaves the running
// average untouched and its own output undefined.
func ewmNull(values []model.NullFloat, alpha float64) []model.NullFloat {
	out := make([]model.NullFloat, len(values))
	var avg float64
	started := false
	for i, v := range values {
		if !v.Valid {
			continue
		}
		if !started {
			avg = v.Float64
			started = true
		} else {
			avg = (1-alpha)*avg + alpha*v.Float64
		}
		out[i] = model.Float(avg)
	}
	return out
}

// rollingSum sums each trailing window; undefined until the window fills.
func rollingSum(values []float64, window int) []model.NullFloat {
	out := make([]model.NullFloat, len(values))
	if window < 1 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		out[i] = model.Float(sum)
	}
	return out
}

// RollingMean is the simple moving average of each trailing window.
func RollingMean(values []float64, window int) []model.NullFloat {
	sums := rollingSum(values, window)
	for i, s := range sums {
		if s.Valid {
			sums[i] = model.Float(s.Float64 / float64(window))
		}
	}
	return sums
}

// rollingMax is the maximum of each trailing window; undefined until the window fills.
func rollingMax(values []float64, window int) []model.NullFloat {
	out := make([]model.NullFloat, len(values))
	if window < 1 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		hi := values[i-window+1]
		for _, v := range values[i-window+2 : i+1] {
			if v > hi {
				hi = v
			}
		}
		out[i] = model.Float(hi)
	}
	return out
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func extractVolumes(bars []model.OHLCV) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}
