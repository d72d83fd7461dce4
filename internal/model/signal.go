package model

import "time"

// SignalCheck is the outcome of one named screening criterion.
type SignalCheck struct {
	Criteria  string
	Signal    bool
	Threshold string
	Current   string
}

// SignalRecord is a SignalCheck stamped with the stock and evaluation time.
type SignalRecord struct {
	SignalCheck
	Timestamp time.Time
	Stock     string
}

// IndicatorColumns is the flattened Name/Status/Threshold/Current quadruple of a check.
type IndicatorColumns struct {
	Name      string
	Status    string
	Threshold string
	Current   string
}

// ReportRow is one stock's line in a wide report.
type ReportRow struct {
	Timestamp     time.Time
	Stock         string
	TradeType     string
	AllSignalsMet bool
	SignalsScore  string
	Indicators    []IndicatorColumns
}

// WideReport is the pivoted per-stock result of one analysis task.
type WideReport struct {
	Task string
	Rows []ReportRow
}

// Empty reports whether the report has no rows.
func (r *WideReport) Empty() bool { return r == nil || len(r.Rows) == 0 }
