package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SignalEngine/internal/model"
)

// ErrReportUnavailable is returned when no bhavcopy is published for a date.
var ErrReportUnavailable = errors.New("delivery report not available")

var (
	equitySeries    = map[string]bool{"EQ": true, "BE": true, "BZ": true, "SM": true, "ST": true}
	tradeToTrade    = map[string]bool{"BE": true, "BZ": true}
	hundred         = decimal.NewFromInt(100)
	bhavcopyColumns = []string{"SYMBOL", "SERIES", "TTL_TRD_QNTY", "DELIV_QTY"}
)

// ParseBhavcopy reads a full NSE security bhavcopy and returns each equity symbol's
// delivery percentage. Trade-to-trade series (BE, BZ) are fully delivered. Quantities
// that do not parse count as zero, and a symbol with no trades reads 0.
func ParseBhavcopy(r io.Reader) (model.DeliveryTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read bhavcopy header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	idx := make([]int, len(bhavcopyColumns))
	for i, name := range bhavcopyColumns {
		c, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("bhavcopy: missing column %s", name)
		}
		idx[i] = c
	}

	table := make(model.DeliveryTable)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bhavcopy: %w", err)
		}
		field := func(i int) string {
			if idx[i] >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx[i]])
		}

		symbol, series := field(0), field(1)
		if symbol == "" || !equitySeries[series] {
			continue
		}
		traded := quantity(field(2))
		delivered := quantity(field(3))
		if tradeToTrade[series] {
			delivered = traded
		}

		pct := 0.0
		if traded.IsPositive() {
			pct = delivered.Div(traded).Mul(hundred).Round(2).InexactFloat64()
		}
		table[symbol] = pct
	}
	return table, nil
}

// quantity parses a whole share count; anything else is zero.
func quantity(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d.Truncate(0)
}

// DeliveryFetcher downloads the most recent published bhavcopy.
type DeliveryFetcher struct {
	Client    *http.Client
	URLFormat string // fmt pattern taking the date as DDMMYYYY
	Lookback  int    // calendar days to search back from today
	Now       func() time.Time
}

// NewDeliveryFetcher creates a fetcher with optional proxy support.
func NewDeliveryFetcher(urlFormat string, lookback int, proxyURL string) *DeliveryFetcher {
	return &DeliveryFetcher{
		Client:    newHTTPClient(proxyURL, 30*time.Second),
		URLFormat: urlFormat,
		Lookback:  lookback,
		Now:       time.Now,
	}
}

// Fetch walks back day by day, skipping weekends, and returns the first report that
// yields equity rows together with its trading date.
func (f *DeliveryFetcher) Fetch(ctx context.Context) (model.DeliveryTable, time.Time, error) {
	now := f.Now()
	for i := 0; i < f.Lookback; i++ {
		if err := ctx.Err(); err != nil {
			return nil, time.Time{}, err
		}
		day := now.AddDate(0, 0, -i)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		table, err := f.fetchDay(ctx, day)
		switch {
		case errors.Is(err, ErrReportUnavailable):
			log.Printf("[WARN] Delivery report for %s not available, trying previous day", day.Format("02-Jan-2006"))
			continue
		case err != nil:
			log.Printf("[ERROR] Delivery report for %s: %v", day.Format("02-Jan-2006"), err)
			continue
		case len(table) == 0:
			log.Printf("[WARN] No equity rows in delivery report for %s", day.Format("02-Jan-2006"))
			continue
		}
		log.Printf("[INFO] Loaded delivery data for %d symbols (%s)", len(table), day.Format("2006-01-02"))
		return table, day, nil
	}
	return nil, time.Time{}, fmt.Errorf("no delivery report within the last %d days: %w", f.Lookback, ErrReportUnavailable)
}

func (f *DeliveryFetcher) fetchDay(ctx context.Context, day time.Time) (model.DeliveryTable, error) {
	u := fmt.Sprintf(f.URLFormat, day.Format("02012006"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bhavcopy: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden:
		return nil, ErrReportUnavailable
	default:
		return nil, fmt.Errorf("fetch bhavcopy: status %d", resp.StatusCode)
	}
	return ParseBhavcopy(resp.Body)
}
