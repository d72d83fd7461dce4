package model

import (
	"math"
	"time"
)

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// IsEmpty reports whether the bar carries no prices (a holiday or a null row).
func (b OHLCV) IsEmpty() bool {
	return b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0
}

// NullFloat is a float64 that may be undefined, in the manner of sql.NullFloat64.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float wraps v; NaN and infinities become undefined.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// Less reports whether n is defined and strictly below v.
func (n NullFloat) Less(v float64) bool { return n.Valid && n.Float64 < v }

// Greater reports whether n is defined and strictly above v.
func (n NullFloat) Greater(v float64) bool { return n.Valid && n.Float64 > v }

// DeliveryTable maps a bare symbol (no exchange suffix) to its delivery percentage.
type DeliveryTable map[string]float64

// Lookup returns the delivery percentage for symbol, 0 when unknown.
func (d DeliveryTable) Lookup(symbol string) float64 {
	if d == nil {
		return 0
	}
	return d[symbol]
}
