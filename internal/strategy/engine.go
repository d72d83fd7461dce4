package strategy

import (
	"errors"
	"fmt"

	"SignalEngine/internal/config"
	"SignalEngine/internal/model"
)

// ErrEmptySeries is returned when there is no bar left to evaluate.
var ErrEmptySeries = errors.New("enriched series has no bars")

// EvaluateSwing checks the ten swing criteria against the newest bar of series.
func EvaluateSwing(series *model.EnrichedSeries, rules config.SwingRules) ([]model.SignalCheck, error) {
	bar, ok := series.Latest()
	if !ok {
		return nil, ErrEmptySeries
	}
	p := series.Periods

	rsiOK := bar.RSI.Valid && bar.RSI.Float64 >= rules.RSIRangeMin && bar.RSI.Float64 <= rules.RSIRangeMax
	rsiRange := param(rules.RSIRangeMin) + "-" + param(rules.RSIRangeMax)

	return []model.SignalCheck{
		priceAbove("1. Price > EMA_"+fmt.Sprint(p.EMAMid), bar.Close, bar.EMAMid),
		priceAbove("2. Price > EMA_"+fmt.Sprint(p.EMASlow), bar.Close, bar.EMASlow),
		{
			Criteria:  "3. RSI in Range (" + rsiRange + ")",
			Signal:    rsiOK,
			Threshold: rsiRange,
			Current:   nullPrice(bar.RSI),
		},
		volumeSpike("4.", bar.Volume, bar.SwingVolumeAvg, rules.VolumeFactor),
		{
			Criteria:  "5. Bullish Reversal Candle",
			Signal:    bar.Pattern != model.PatternNone && bar.Pattern != "",
			Threshold: "Engulf/Hammer/Inside",
			Current:   string(bar.Pattern),
		},
		narrowCPR("6. Price > Top CPR (Narrow Monthly)", bar.Close, bar.MonthlyCPR),
		narrowCPR("7. Price > Top CPR (Narrow Weekly)", bar.Close, bar.WeeklyCPR),
		vwapCheck("8. Price > VWAP (Volume Weighted Avg)", bar.Close, bar.VWAP),
		{
			Criteria:  "9. ADX > " + param(rules.ADXMin),
			Signal:    bar.ADX.Greater(rules.ADXMin),
			Threshold: ">" + param(rules.ADXMin),
			Current:   nullPrice(bar.ADX),
		},
		delivery("10. High Delivery %", bar.DeliveryPct, rules.DeliveryPercMin),
	}, nil
}

// EvaluateMomentum checks the ten momentum criteria against the newest bar of series.
func EvaluateMomentum(series *model.EnrichedSeries, rules config.MomentumRules) ([]model.SignalCheck, error) {
	bar, ok := series.Latest()
	if !ok {
		return nil, ErrEmptySeries
	}
	p := series.Periods

	stacked := bar.EMAFast.Valid && bar.EMAMid.Valid && bar.EMASlow.Valid &&
		bar.EMAFast.Float64 > bar.EMAMid.Float64 && bar.EMAMid.Float64 > bar.EMASlow.Float64
	stackLabel := "Not Stacked"
	if stacked {
		stackLabel = "Stacked"
	}

	return []model.SignalCheck{
		priceAbove("1. Price > EMA_"+fmt.Sprint(p.EMAFast), bar.Close, bar.EMAFast),
		priceAbove("2. Price > EMA_"+fmt.Sprint(p.EMAMid), bar.Close, bar.EMAMid),
		priceAbove("3. Price > EMA_"+fmt.Sprint(p.EMASlow), bar.Close, bar.EMASlow),
		{
			Criteria:  "4. RSI > " + param(rules.RSIMin),
			Signal:    bar.RSI.Greater(rules.RSIMin),
			Threshold: ">" + param(rules.RSIMin),
			Current:   nullPrice(bar.RSI),
		},
		volumeSpike("5.", bar.Volume, bar.MomentumVolumeAvg, rules.VolumeFactor),
		{
			Criteria:  "6. Breakout (52-Week High)",
			Signal:    bar.Breakout52w,
			Threshold: "New 52w High",
			Current:   "Is Breakout: " + titleBool(bar.Breakout52w),
		},
		vwapCheck("7. Price > VWAP (Volume Weighted Avg)", bar.Close, bar.VWAP),
		narrowCPR("8. Price > Top CPR (Narrow Weekly)", bar.Close, bar.WeeklyCPR),
		{
			Criteria:  fmt.Sprintf("9. EMA Stack (%d>%d>%d)", p.EMAFast, p.EMAMid, p.EMASlow),
			Signal:    stacked,
			Threshold: "EMAs Aligned",
			Current:   stackLabel,
		},
		delivery("10. High Delivery %", bar.DeliveryPct, rules.DeliveryPercMin),
	}, nil
}

func priceAbove(name string, close float64, level model.NullFloat) model.SignalCheck {
	threshold := notAvailable
	if level.Valid {
		threshold = ">" + price(level.Float64)
	}
	return model.SignalCheck{
		Criteria:  name,
		Signal:    level.Less(close),
		Threshold: threshold,
		Current:   price(close),
	}
}

func vwapCheck(name string, close float64, vwap model.NullFloat) model.SignalCheck {
	return model.SignalCheck{
		Criteria:  name,
		Signal:    vwap.Less(close),
		Threshold: "> " + nullPrice(vwap),
		Current:   price(close),
	}
}

// volumeSpike compares today's volume with factor times its rolling average.
func volumeSpike(index string, vol float64, avg model.NullFloat, factor float64) model.SignalCheck {
	check := model.SignalCheck{
		Criteria:  index + " Volume > " + param(factor) + "x Avg",
		Threshold: notAvailable,
		Current:   volume(vol),
	}
	if avg.Valid {
		limit := avg.Float64 * factor
		check.Signal = vol > limit
		check.Threshold = ">" + volume(limit)
	}
	return check
}

// narrowCPR passes when the close is above a narrow band's top.
func narrowCPR(name string, close float64, band model.CPR) model.SignalCheck {
	return model.SignalCheck{
		Criteria:  name,
		Signal:    band.Narrow && band.Top.Less(close),
		Threshold: "> " + nullPrice(band.Top) + " & IsNarrow",
		Current:   "Price=" + price(close) + ", Narrow=" + titleBool(band.Narrow),
	}
}

func delivery(name string, pct, minPct float64) model.SignalCheck {
	return model.SignalCheck{
		Criteria:  name,
		Signal:    pct > minPct,
		Threshold: "> " + param(minPct) + "%",
		Current:   fmt.Sprintf("%.2f%%", pct),
	}
}
