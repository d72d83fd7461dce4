package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"SignalEngine/internal/model"
)

// ErrNoData is returned when a symbol has no usable bars.
var ErrNoData = errors.New("no price data")

const userAgent = "Mozilla/5.0"

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars  map[string][]model.OHLCV // per-symbol data; takes precedence
	Errs  map[string]error
	Price float64 // base price for generated data when a symbol has no entry
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	if m.Price == 0 {
		return nil, nil
	}
	return generateMockBars(m.Price, days), nil
}

// generateMockBars produces a gently rising weekday series ending yesterday.
func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	day := time.Now().UTC().Truncate(24 * time.Hour)
	for i := count - 1; i >= 0; {
		day = day.AddDate(0, 0, -1)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   day,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
		i--
	}
	return bars
}

// Collector fetches and cleans daily history for one symbol at a time.
type Collector struct {
	Fetcher Fetcher
	Days    int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, days int) *Collector {
	return &Collector{Fetcher: fetcher, Days: days}
}

// Collect returns the symbol's bars ordered by date with empty rows and duplicate
// dates removed. It returns ErrNoData when nothing usable remains.
func (c *Collector) Collect(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	raw, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.Days)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	bars := normalizeBars(raw)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

// normalizeBars copies raw, drops empty bars, sorts by date and keeps the last bar
// seen for each trading day.
func normalizeBars(raw []model.OHLCV) []model.OHLCV {
	bars := make([]model.OHLCV, 0, len(raw))
	for _, b := range raw {
		if b.IsEmpty() {
			continue
		}
		bars = append(bars, b)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && sameDay(out[n-1].Time, b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StripSuffix removes the exchange suffix from a ticker: "RELIANCE.NS" -> "RELIANCE".
func StripSuffix(symbol, suffix string) string {
	if suffix == "" {
		return symbol
	}
	return strings.TrimSuffix(symbol, suffix)
}
