package calculator

// RSI computes the Wilder-smoothed relative strength index for every close.
// Gains and losses are smoothed with alpha 1/period, seeded with the first
// change (zero for the first bar). A bar whose average loss is exactly zero
// reads 100, including flat series.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else if change < 0 {
			losses[i] = -change
		}
	}

	alpha := 1.0 / float64(period)
	avgGain := ewm(gains, alpha)
	avgLoss := ewm(losses, alpha)

	rsi := make([]float64, n)
	for i := range rsi {
		if avgLoss[i] == 0 {
			rsi[i] = 100.0
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		rsi[i] = 100.0 - 100.0/(1.0+rs)
	}
	return rsi
}
