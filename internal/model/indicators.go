package model

// CandlePattern labels the bullish setup detected on a bar.
type CandlePattern string

const (
	PatternNone        CandlePattern = "None"
	PatternEngulf      CandlePattern = "BULL_ENGULF"
	PatternHammer      CandlePattern = "BULL_HAMMER"
	PatternInsideBreak CandlePattern = "BULL_INSIDE_BREAK"
)

// CPR is a central pivot range band derived from the prior period.
type CPR struct {
	Top    NullFloat
	Bottom NullFloat
	Narrow bool
}

// EnrichedBar is one bar plus every derived indicator column.
type EnrichedBar struct {
	OHLCV

	EMAFast NullFloat // momentum ema_period_1
	EMAMid  NullFloat // swing ema_period_1
	EMASlow NullFloat // swing ema_period_2
	RSI     NullFloat
	ATR     NullFloat
	ADX     NullFloat
	VWAP    NullFloat

	SwingVolumeAvg    NullFloat
	MomentumVolumeAvg NullFloat

	MonthlyCPR CPR
	WeeklyCPR  CPR

	Pattern     CandlePattern
	Breakout52w bool
	DeliveryPct float64
}

// Periods records the lookbacks an EnrichedSeries was computed with.
type Periods struct {
	EMAFast int
	EMAMid  int
	EMASlow int
	RSI     int
	ADX     int
	VWAP    int
}

// EnrichedSeries is the indicator-complete tail of one symbol's history.
type EnrichedSeries struct {
	Bars    []EnrichedBar
	Periods Periods
}

// Latest returns the newest bar, false when the series is empty.
func (s *EnrichedSeries) Latest() (EnrichedBar, bool) {
	if s == nil || len(s.Bars) == 0 {
		return EnrichedBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
