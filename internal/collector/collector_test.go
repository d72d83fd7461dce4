package collector

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"SignalEngine/internal/config"
	"SignalEngine/internal/model"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestCollect_NormalizesBars(t *testing.T) {
	m := &MockFetcher{Bars: map[string][]model.OHLCV{
		"SBIN.NS": {
			{Time: day(3), Open: 3, High: 3, Low: 3, Close: 3},
			{Time: day(1), Open: 1, High: 1, Low: 1, Close: 1},
			{Time: day(2)}, // holiday row
			{Time: day(3).Add(9 * time.Hour), Open: 4, High: 4, Low: 4, Close: 4},
		},
	}}
	bars, err := NewCollector(m, 400).Collect(context.Background(), "SBIN.NS")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Time.Equal(day(1)) || bars[1].Close != 4 {
		t.Errorf("expected sorted bars keeping the last duplicate, got %+v", bars)
	}
}

func TestCollect_Errors(t *testing.T) {
	boom := errors.New("boom")
	m := &MockFetcher{
		Bars: map[string][]model.OHLCV{"EMPTY.NS": {{Time: day(1)}}},
		Errs: map[string]error{"BAD.NS": boom},
	}
	c := NewCollector(m, 400)

	if _, err := c.Collect(context.Background(), "EMPTY.NS"); !errors.Is(err, ErrNoData) {
		t.Errorf("all-empty bars: expected ErrNoData, got %v", err)
	}
	if _, err := c.Collect(context.Background(), "MISSING.NS"); !errors.Is(err, ErrNoData) {
		t.Errorf("unknown symbol: expected ErrNoData, got %v", err)
	}
	if _, err := c.Collect(context.Background(), "BAD.NS"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

func TestMockFetcher_Generated(t *testing.T) {
	bars, err := (&MockFetcher{Price: 100}).FetchDailyBars(context.Background(), "X", 300)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 300 {
		t.Fatalf("expected 300 bars, got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			t.Fatalf("bars not increasing at %d", i)
		}
		if wd := bars[i].Time.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("weekend bar at %d", i)
		}
	}
	if bars[299].Close <= bars[0].Close {
		t.Error("expected a rising series")
	}
}

func TestStripSuffix(t *testing.T) {
	if got := StripSuffix("RELIANCE.NS", ".NS"); got != "RELIANCE" {
		t.Errorf("got %q", got)
	}
	if got := StripSuffix("RELIANCE", ""); got != "RELIANCE" {
		t.Errorf("got %q", got)
	}
}

const chartJSON = `{"chart":{"result":[{"timestamp":[1736121600,1736208000,1736294400],
"indicators":{"quote":[{"open":[10,null,12],"high":[11,null,13],"low":[9,null,11],"close":[10,null,12],"volume":[100,null,300]}],
"adjclose":[{"adjclose":[5,null,12]}]}}],"error":null}}`

func TestYahooFetcher(t *testing.T) {
	var gotPath, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchDailyBars(context.Background(), "TCS.NS", 400)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/TCS.NS" || gotRange != "2y" {
		t.Errorf("unexpected request %s range=%s", gotPath, gotRange)
	}
	if len(bars) != 2 {
		t.Fatalf("null bar should be skipped, got %d bars", len(bars))
	}
	// adjclose/close = 0.5 on the first bar
	if bars[0].Open != 5 || bars[0].High != 5.5 || bars[0].Close != 5 {
		t.Errorf("expected adjusted prices, got %+v", bars[0])
	}
	if bars[1].Close != 12 || bars[1].Volume != 300 {
		t.Errorf("unexpected second bar %+v", bars[1])
	}

	trimmed, _ := f.FetchDailyBars(context.Background(), "TCS.NS", 1)
	if len(trimmed) != 1 || trimmed[0].Close != 12 {
		t.Errorf("expected the newest bar only, got %+v", trimmed)
	}
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	if _, err := f.FetchDailyBars(context.Background(), "NOPE.NS", 400); err == nil || !strings.Contains(err.Error(), "No data found") {
		t.Errorf("expected api error, got %v", err)
	}
}

func TestParseNifty500(t *testing.T) {
	csv := "Company Name,Industry,Symbol,Series,ISIN Code\n" +
		"Tata Consultancy,IT,TCS,EQ,INE1\n" +
		"Reliance,Energy,RELIANCE,EQ,INE2\n" +
		"Reliance dup,Energy,RELIANCE,EQ,INE2\n"
	got, err := ParseNifty500(strings.NewReader(csv), ".NS")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"RELIANCE.NS", "TCS.NS"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if _, err := ParseNifty500(strings.NewReader("Name\nX\n"), ".NS"); err == nil {
		t.Error("expected error without Symbol column")
	}
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseFnOInstruments(t *testing.T) {
	dump := `[
		{"segment":"NSE_FO","underlying_symbol":"SBIN","instrument_type":"FUT"},
		{"segment":"NSE_FO","underlying_symbol":"SBIN","instrument_type":"CE"},
		{"segment":"NSE_FO","underlying_symbol":"INFY"},
		{"segment":"NSE_EQ","underlying_symbol":"ZOMATO"},
		{"segment":"NSE_FO","underlying_symbol":""}
	]`
	got, err := ParseFnOInstruments(bytes.NewReader(gzipped(t, dump)), ".NS")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"INFY.NS", "SBIN.NS"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestUniverseLoader_FetchAndFallback(t *testing.T) {
	up := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("Symbol\nHDFCBANK\nITC\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	l := &UniverseLoader{
		Client:       srv.Client(),
		Suffix:       ".NS",
		FetchTickers: true,
		Nifty500URL:  srv.URL,
		N500File:     filepath.Join(dir, "n500.csv"),
	}
	want := []string{"HDFCBANK.NS", "ITC.NS"}

	got, err := l.Load(context.Background(), config.UniverseN500)
	if err != nil || !reflect.DeepEqual(got, want) {
		t.Fatalf("fetch: expected %v, got %v (%v)", want, got, err)
	}

	up = false
	got, err = l.Load(context.Background(), config.UniverseN500)
	if err != nil || !reflect.DeepEqual(got, want) {
		t.Errorf("fallback to cached file: expected %v, got %v (%v)", want, got, err)
	}

	if _, err := l.Load(context.Background(), "sp500"); err == nil {
		t.Error("expected error for unknown universe")
	}
}

const bhavcopy = `SYMBOL, SERIES, DATE1, PREV_CLOSE, TTL_TRD_QNTY, DELIV_QTY, DELIV_PER
SBIN, EQ, 14-Mar-2025, 700.00, 3000, 1000, 33.33
IDEA, EQ, 14-Mar-2025, 8.00, 7, 2, 28.57
TTB, BE, 14-Mar-2025, 50.00, 500, -, -
ZERO, EQ, 14-Mar-2025, 10.00, 0, 0, -
NIFTYBEES, ETF, 14-Mar-2025, 250.00, 100, 90, 90.00
`

func TestParseBhavcopy(t *testing.T) {
	table, err := ParseBhavcopy(strings.NewReader(bhavcopy))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := model.DeliveryTable{"SBIN": 33.33, "IDEA": 28.57, "TTB": 100, "ZERO": 0}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("expected %v, got %v", want, table)
	}
	if table.Lookup("UNKNOWN") != 0 {
		t.Error("absent symbol should read 0")
	}

	if _, err := ParseBhavcopy(strings.NewReader("SYMBOL, SERIES\n")); err == nil {
		t.Error("expected error for missing quantity columns")
	}
}

func TestDeliveryFetcher_WalksBackToLatestReport(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if r.URL.Path != "/bhav_14032025.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(bhavcopy))
	}))
	defer srv.Close()

	f := NewDeliveryFetcher(srv.URL+"/bhav_%s.csv", 7, "")
	// Monday 17 March 2025: today is not yet published, the weekend is skipped.
	f.Now = func() time.Time { return time.Date(2025, 3, 17, 18, 0, 0, 0, time.UTC) }

	table, date, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if date.Day() != 14 || table["SBIN"] != 33.33 {
		t.Errorf("unexpected result %v %v", date, table)
	}
	if want := []string{"/bhav_17032025.csv", "/bhav_14032025.csv"}; !reflect.DeepEqual(requested, want) {
		t.Errorf("expected requests %v, got %v", want, requested)
	}

	f.Lookback = 1
	if _, _, err := f.Fetch(context.Background()); !errors.Is(err, ErrReportUnavailable) {
		t.Errorf("expected ErrReportUnavailable, got %v", err)
	}
}
