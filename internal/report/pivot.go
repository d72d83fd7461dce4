package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"SignalEngine/internal/model"
)

// TimestampLayout is how row timestamps are printed in tables and spreadsheets.
const TimestampLayout = "2006-01-02 15:04"

// Pivot groups long-format signal records by stock into one wide row per stock, then
// orders rows by signals met (descending) and stock name.
func Pivot(records []model.SignalRecord, task string) *model.WideReport {
	rep := &model.WideReport{Task: task}
	if len(records) == 0 {
		return rep
	}

	index := make(map[string]int)
	for _, rec := range records {
		i, ok := index[rec.Stock]
		if !ok {
			i = len(rep.Rows)
			index[rec.Stock] = i
			rep.Rows = append(rep.Rows, model.ReportRow{
				Timestamp: rec.Timestamp,
				Stock:     rec.Stock,
				TradeType: task,
			})
		}
		rep.Rows[i].Indicators = append(rep.Rows[i].Indicators, model.IndicatorColumns{
			Name:      rec.Criteria,
			Status:    status(rec.Signal),
			Threshold: rec.Threshold,
			Current:   rec.Current,
		})
	}

	for i := range rep.Rows {
		row := &rep.Rows[i]
		met := 0
		for _, ind := range row.Indicators {
			if ind.Status == statusTrue {
				met++
			}
		}
		row.SignalsScore = fmt.Sprintf("%d/%d", met, len(row.Indicators))
		row.AllSignalsMet = met == len(row.Indicators)
	}

	sortRows(rep.Rows)
	return rep
}

const (
	statusTrue  = "TRUE"
	statusFalse = "FALSE"
)

func status(b bool) string {
	if b {
		return statusTrue
	}
	return statusFalse
}

// scoreOf parses the numerator of a "met/total" score.
func scoreOf(score string) (int, error) {
	met, _, ok := strings.Cut(score, "/")
	if !ok {
		return 0, fmt.Errorf("malformed score %q", score)
	}
	return strconv.Atoi(met)
}

// sortRows orders by score descending then stock ascending. If any score cannot be
// parsed the whole table falls back to stock order.
func sortRows(rows []model.ReportRow) {
	scores := make(map[string]int, len(rows))
	for _, r := range rows {
		n, err := scoreOf(r.SignalsScore)
		if err != nil {
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].Stock < rows[j].Stock })
			return
		}
		scores[r.Stock] = n
	}
	sort.SliceStable(rows, func(i, j int) bool {
		si, sj := scores[rows[i].Stock], scores[rows[j].Stock]
		if si != sj {
			return si > sj
		}
		return rows[i].Stock < rows[j].Stock
	})
}

// Header returns the report's column names. The indicator block is as wide as the
// row with the most criteria.
func Header(rep *model.WideReport) []string {
	cols := []string{"Timestamp", "Stock", "TradeType", "All Signals Met", "Signals Score"}
	for i := 1; i <= width(rep); i++ {
		prefix := fmt.Sprintf("Indicator %d - ", i)
		cols = append(cols, prefix+"Name", prefix+"Status", prefix+"Threshold", prefix+"Current")
	}
	return cols
}

// Table renders every row as strings aligned with Header; short rows are padded
// with empty cells.
func Table(rep *model.WideReport) [][]string {
	if rep.Empty() {
		return nil
	}
	w := width(rep)
	out := make([][]string, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		cells := make([]string, 0, 5+4*w)
		cells = append(cells,
			formatTimestamp(r.Timestamp),
			r.Stock,
			r.TradeType,
			strings.ToUpper(strconv.FormatBool(r.AllSignalsMet)),
			r.SignalsScore,
		)
		for i := 0; i < w; i++ {
			if i < len(r.Indicators) {
				ind := r.Indicators[i]
				cells = append(cells, ind.Name, ind.Status, ind.Threshold, ind.Current)
			} else {
				cells = append(cells, "", "", "", "")
			}
		}
		out = append(out, cells)
	}
	return out
}

func width(rep *model.WideReport) int {
	if rep == nil {
		return 0
	}
	w := 0
	for _, r := range rep.Rows {
		if len(r.Indicators) > w {
			w = len(r.Indicators)
		}
	}
	return w
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

// Summary counts the rows meeting every criterion.
func Summary(rep *model.WideReport) (total, allMet int) {
	if rep.Empty() {
		return 0, 0
	}
	for _, r := range rep.Rows {
		if r.AllSignalsMet {
			allMet++
		}
	}
	return len(rep.Rows), allMet
}
