package calculator

// EMA computes the exponential moving average of prices with weight 2/(period+1),
// seeded with the first price and without bias adjustment.
func EMA(prices []float64, period int) []float64 {
	return ewm(prices, spanAlpha(period))
}
