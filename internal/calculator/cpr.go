package calculator

import (
	"math"
	"sort"
	"time"

	"SignalEngine/internal/model"
)

// narrowCPRRatio is the band width, as a fraction of the prior close, below which a CPR is narrow.
const narrowCPRRatio = 0.005

// MinWeeklyCPRBars is the shortest history a weekly CPR is computed for.
const MinWeeklyCPRBars = 7

// PivotBand derives the central pivot range from a completed period's high, low and close.
func PivotBand(high, low, close float64) model.CPR {
	pivot := (high + low + close) / 3
	bc := (high + low) / 2
	tc := (pivot - bc) + pivot
	return model.CPR{
		Top:    model.Float(math.Max(tc, bc)),
		Bottom: model.Float(math.Min(tc, bc)),
		Narrow: math.Abs(tc-bc) < close*narrowCPRRatio,
	}
}

type periodHLC struct {
	high, low, close float64
}

func (p *periodHLC) add(b model.OHLCV, first bool) {
	if first {
		*p = periodHLC{high: b.High, low: b.Low, close: b.Close}
		return
	}
	p.high = math.Max(p.high, b.High)
	p.low = math.Min(p.low, b.Low)
	p.close = b.Close
}

// MonthlyCPR computes the band from the calendar month before the last bar's month.
// It returns an undefined, non-narrow band when that month has no bars.
func MonthlyCPR(bars []model.OHLCV) model.CPR {
	if len(bars) == 0 {
		return model.CPR{}
	}
	last := bars[len(bars)-1].Time
	prev := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, last.Location()).AddDate(0, -1, 0)

	var hlc periodHLC
	found := false
	for _, b := range bars {
		if b.Time.Year() != prev.Year() || b.Time.Month() != prev.Month() {
			continue
		}
		hlc.add(b, !found)
		found = true
	}
	if !found {
		return model.CPR{}
	}
	return PivotBand(hlc.high, hlc.low, hlc.close)
}

func isoWeekKey(t time.Time) int {
	y, w := t.ISOWeek()
	return y*100 + w
}

// WeeklyCPR computes, for every bar, the band of the ISO week preceding the bar's own
// week among the weeks present in the data. Bars of the first week, and every bar of a
// series shorter than MinWeeklyCPRBars, get an undefined band.
func WeeklyCPR(bars []model.OHLCV) []model.CPR {
	out := make([]model.CPR, len(bars))
	if len(bars) < MinWeeklyCPRBars {
		return out
	}

	weeks := make(map[int]*periodHLC)
	var keys []int
	for _, b := range bars {
		k := isoWeekKey(b.Time)
		w, ok := weeks[k]
		if !ok {
			w = &periodHLC{}
			weeks[k] = w
			keys = append(keys, k)
		}
		w.add(b, !ok)
	}
	sort.Ints(keys)

	bands := make(map[int]model.CPR, len(keys))
	for i := 1; i < len(keys); i++ {
		p := weeks[keys[i-1]]
		bands[keys[i]] = PivotBand(p.high, p.low, p.close)
	}
	for i, b := range bars {
		out[i] = bands[isoWeekKey(b.Time)]
	}
	return out
}
