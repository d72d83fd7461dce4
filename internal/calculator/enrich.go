package calculator

import (
	"errors"
	"fmt"

	"SignalEngine/internal/config"
	"SignalEngine/internal/model"
)

// MinHistory is the fewest daily bars a symbol needs before it is enriched.
const MinHistory = 252

// ErrInsufficientHistory is returned when a series is too short to enrich.
var ErrInsufficientHistory = errors.New("insufficient history")

// Enrich computes every indicator column for one symbol's daily bars and returns the
// bars that carry a complete indicator set (slow EMA, RSI, VWAP and ADX defined).
// The input slice is not modified.
func Enrich(bars []model.OHLCV, swing config.SwingRules, momentum config.MomentumRules, deliveryPct float64) (*model.EnrichedSeries, error) {
	if len(bars) < MinHistory {
		return nil, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientHistory, len(bars), MinHistory)
	}

	closes := extractCloses(bars)
	volumes := extractVolumes(bars)

	emaFast := EMA(closes, momentum.EMAPeriod1)
	emaMid := EMA(closes, swing.EMAPeriod1)
	emaSlow := EMA(closes, swing.EMAPeriod2)
	rsi := RSI(closes, swing.RSIPeriod)
	swingVolAvg := RollingMean(volumes, swing.VolumeAvgPeriod)
	momentumVolAvg := RollingMean(volumes, momentum.VolumeAvgPeriod)
	atr := ATR(bars, ATRPeriod)
	adx := ADX(bars, swing.ADXPeriod)
	monthly := MonthlyCPR(bars)
	weekly := WeeklyCPR(bars)
	vwap := VWAP(bars, swing.POCPeriod)
	patterns := DetectPatterns(bars, atr)
	breakout := Breakout(closes, BreakoutLookback)

	series := &model.EnrichedSeries{
		Periods: model.Periods{
			EMAFast: momentum.EMAPeriod1,
			EMAMid:  swing.EMAPeriod1,
			EMASlow: swing.EMAPeriod2,
			RSI:     swing.RSIPeriod,
			ADX:     swing.ADXPeriod,
			VWAP:    swing.POCPeriod,
		},
	}
	for i, b := range bars {
		eb := model.EnrichedBar{
			OHLCV:             b,
			EMAFast:           model.Float(emaFast[i]),
			EMAMid:            model.Float(emaMid[i]),
			EMASlow:           model.Float(emaSlow[i]),
			RSI:               model.Float(rsi[i]),
			ATR:               model.Float(atr[i]),
			ADX:               adx[i],
			VWAP:              vwap[i],
			SwingVolumeAvg:    swingVolAvg[i],
			MomentumVolumeAvg: momentumVolAvg[i],
			MonthlyCPR:        monthly,
			WeeklyCPR:         weekly[i],
			Pattern:           patterns[i],
			Breakout52w:       breakout[i],
			DeliveryPct:       deliveryPct,
		}
		if !complete(eb) {
			continue
		}
		series.Bars = append(series.Bars, eb)
	}
	return series, nil
}

// complete reports whether a bar is eligible for rule evaluation.
func complete(b model.EnrichedBar) bool {
	return b.EMASlow.Valid && b.RSI.Valid && b.VWAP.Valid && b.ADX.Valid
}
