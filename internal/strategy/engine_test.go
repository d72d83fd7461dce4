package strategy

import (
	"errors"
	"strings"
	"testing"

	"SignalEngine/internal/config"
	"SignalEngine/internal/model"
)

func swingRules() config.SwingRules {
	return config.SwingRules{
		EMAPeriod1: 50, EMAPeriod2: 200, RSIPeriod: 14,
		RSIRangeMin: 45, RSIRangeMax: 60,
		VolumeAvgPeriod: 20, VolumeFactor: 1.5,
		ADXPeriod: 14, ADXMin: 20, POCPeriod: 60, DeliveryPercMin: 35,
	}
}

func momentumRules() config.MomentumRules {
	return config.MomentumRules{
		EMAPeriod1: 20, RSIMin: 60, VolumeAvgPeriod: 20, VolumeFactor: 2, DeliveryPercMin: 40,
	}
}

// bullishBar is a latest bar that satisfies every swing criterion except RSI range.
func bullishBar() model.EnrichedBar {
	return model.EnrichedBar{
		OHLCV:             model.OHLCV{Open: 99, High: 101, Low: 98, Close: 100, Volume: 3_000_000},
		EMAFast:           model.Float(98),
		EMAMid:            model.Float(95),
		EMASlow:           model.Float(90),
		RSI:               model.Float(72.3),
		ATR:               model.Float(2),
		ADX:               model.Float(28),
		VWAP:              model.Float(97.5),
		SwingVolumeAvg:    model.Float(1_000_000),
		MomentumVolumeAvg: model.Float(1_200_000),
		MonthlyCPR:        model.CPR{Top: model.Float(96.2), Bottom: model.Float(96), Narrow: true},
		WeeklyCPR:         model.CPR{Top: model.Float(99), Bottom: model.Float(98.9), Narrow: true},
		Pattern:           model.PatternHammer,
		Breakout52w:       true,
		DeliveryPct:       52.4,
	}
}

func series(bar model.EnrichedBar) *model.EnrichedSeries {
	return &model.EnrichedSeries{
		Bars:    []model.EnrichedBar{bullishBar(), bar},
		Periods: model.Periods{EMAFast: 20, EMAMid: 50, EMASlow: 200, RSI: 14, ADX: 14, VWAP: 60},
	}
}

func TestEvaluate_EmptySeries(t *testing.T) {
	if _, err := EvaluateSwing(&model.EnrichedSeries{}, swingRules()); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("swing: expected ErrEmptySeries, got %v", err)
	}
	if _, err := EvaluateMomentum(nil, momentumRules()); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("momentum: expected ErrEmptySeries, got %v", err)
	}
}

func TestEvaluateSwing_Checks(t *testing.T) {
	checks, err := EvaluateSwing(series(bullishBar()), swingRules())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(checks) != 10 {
		t.Fatalf("expected 10 checks, got %d", len(checks))
	}

	want := []model.SignalCheck{
		{Criteria: "1. Price > EMA_50", Signal: true, Threshold: ">95.00", Current: "100.00"},
		{Criteria: "2. Price > EMA_200", Signal: true, Threshold: ">90.00", Current: "100.00"},
		{Criteria: "3. RSI in Range (45-60)", Signal: false, Threshold: "45-60", Current: "72.30"},
		{Criteria: "4. Volume > 1.5x Avg", Signal: true, Threshold: ">1,500,000", Current: "3,000,000"},
		{Criteria: "5. Bullish Reversal Candle", Signal: true, Threshold: "Engulf/Hammer/Inside", Current: "BULL_HAMMER"},
		{Criteria: "6. Price > Top CPR (Narrow Monthly)", Signal: true, Threshold: "> 96.20 & IsNarrow", Current: "Price=100.00, Narrow=True"},
		{Criteria: "7. Price > Top CPR (Narrow Weekly)", Signal: true, Threshold: "> 99.00 & IsNarrow", Current: "Price=100.00, Narrow=True"},
		{Criteria: "8. Price > VWAP (Volume Weighted Avg)", Signal: true, Threshold: "> 97.50", Current: "100.00"},
		{Criteria: "9. ADX > 20", Signal: true, Threshold: ">20", Current: "28.00"},
		{Criteria: "10. High Delivery %", Signal: true, Threshold: "> 35%", Current: "52.40%"},
	}
	for i, w := range want {
		if checks[i] != w {
			t.Errorf("check %d:\n  got  %+v\n  want %+v", i+1, checks[i], w)
		}
	}
}

func TestEvaluateSwing_RSIBoundsInclusive(t *testing.T) {
	for _, rsi := range []float64{45, 52.5, 60} {
		bar := bullishBar()
		bar.RSI = model.Float(rsi)
		checks, _ := EvaluateSwing(series(bar), swingRules())
		if !checks[2].Signal {
			t.Errorf("RSI %v should be inside [45,60]", rsi)
		}
	}
}

func TestEvaluateSwing_WideCPRFails(t *testing.T) {
	bar := bullishBar()
	bar.MonthlyCPR.Narrow = false
	checks, _ := EvaluateSwing(series(bar), swingRules())
	if checks[5].Signal {
		t.Error("a wide monthly CPR must fail even when price is above its top")
	}
	if checks[5].Current != "Price=100.00, Narrow=False" {
		t.Errorf("unexpected current %q", checks[5].Current)
	}
}

func TestEvaluateSwing_UndefinedValues(t *testing.T) {
	bar := bullishBar()
	bar.SwingVolumeAvg = model.NullFloat{}
	bar.WeeklyCPR = model.CPR{}
	bar.Pattern = model.PatternNone

	checks, _ := EvaluateSwing(series(bar), swingRules())
	if checks[3].Signal || checks[3].Threshold != "n/a" {
		t.Errorf("undefined volume average: got %+v", checks[3])
	}
	if checks[4].Signal || checks[4].Current != "None" {
		t.Errorf("no pattern: got %+v", checks[4])
	}
	if checks[6].Signal || checks[6].Threshold != "> n/a & IsNarrow" {
		t.Errorf("undefined weekly CPR: got %+v", checks[6])
	}
}

func TestEvaluateSwing_ZeroDeliveryFails(t *testing.T) {
	bar := bullishBar()
	bar.DeliveryPct = 0
	checks, _ := EvaluateSwing(series(bar), swingRules())
	if checks[9].Signal {
		t.Error("0% delivery must fail")
	}
	if checks[9].Current != "0.00%" {
		t.Errorf("expected 0.00%%, got %q", checks[9].Current)
	}
}

func TestEvaluateMomentum_Checks(t *testing.T) {
	checks, err := EvaluateMomentum(series(bullishBar()), momentumRules())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := []string{
		"1. Price > EMA_20",
		"2. Price > EMA_50",
		"3. Price > EMA_200",
		"4. RSI > 60",
		"5. Volume > 2x Avg",
		"6. Breakout (52-Week High)",
		"7. Price > VWAP (Volume Weighted Avg)",
		"8. Price > Top CPR (Narrow Weekly)",
		"9. EMA Stack (20>50>200)",
		"10. High Delivery %",
	}
	for i, c := range checks {
		if c.Criteria != names[i] {
			t.Errorf("check %d: expected name %q, got %q", i+1, names[i], c.Criteria)
		}
		if !c.Signal {
			t.Errorf("check %q should pass on a bullish bar: %+v", c.Criteria, c)
		}
	}
	if checks[4].Threshold != ">2,400,000" {
		t.Errorf("momentum volume must use its own average, got %q", checks[4].Threshold)
	}
	if checks[5].Current != "Is Breakout: True" {
		t.Errorf("unexpected breakout current %q", checks[5].Current)
	}
	if checks[8].Current != "Stacked" {
		t.Errorf("unexpected stack current %q", checks[8].Current)
	}
	if checks[9].Threshold != "> 40%" {
		t.Errorf("unexpected delivery threshold %q", checks[9].Threshold)
	}
}

func TestEvaluateMomentum_StackStrict(t *testing.T) {
	bar := bullishBar()
	bar.EMAMid = bar.EMAFast
	checks, _ := EvaluateMomentum(series(bar), momentumRules())
	if checks[8].Signal || checks[8].Current != "Not Stacked" {
		t.Errorf("equal EMAs are not stacked: %+v", checks[8])
	}
}

func TestEvaluate_ParameterNamesFollowConfig(t *testing.T) {
	rules := swingRules()
	rules.ADXMin = 22.5
	rules.VolumeFactor = 1.25
	s := series(bullishBar())
	s.Periods.EMAMid = 34

	checks, _ := EvaluateSwing(s, rules)
	if checks[0].Criteria != "1. Price > EMA_34" {
		t.Errorf("unexpected name %q", checks[0].Criteria)
	}
	if !strings.HasSuffix(checks[3].Criteria, "1.25x Avg") {
		t.Errorf("unexpected name %q", checks[3].Criteria)
	}
	if checks[8].Criteria != "9. ADX > 22.5" || checks[8].Threshold != ">22.5" {
		t.Errorf("unexpected ADX check %+v", checks[8])
	}
}
