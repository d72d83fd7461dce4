package collector

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"SignalEngine/internal/config"
)

const (
	symbolColumn = "Symbol"
	fnoSegment   = "NSE_FO"
)

// UniverseLoader resolves a task universe ("n500", "fno") to a ticker list, either
// by downloading the index constituents or by reading the locally cached file.
type UniverseLoader struct {
	Client       *http.Client
	Suffix       string
	FetchTickers bool
	Nifty500URL  string
	FnOURL       string
	N500File     string
	FnOFile      string
}

// NewUniverseLoader creates a loader from the data source and file path settings.
func NewUniverseLoader(cfg *config.Config) *UniverseLoader {
	return &UniverseLoader{
		Client:       newHTTPClient(cfg.Proxy, 30*time.Second),
		Suffix:       cfg.DataSource.SymbolSuffix,
		FetchTickers: cfg.DataSource.FetchTickers,
		Nifty500URL:  cfg.DataSource.Nifty500URL,
		FnOURL:       cfg.DataSource.FnOURL,
		N500File:     cfg.FilePaths.N500TickersFile,
		FnOFile:      cfg.FilePaths.FnOTickersFile,
	}
}

// Load returns the sorted, de-duplicated tickers of a universe. A successful download
// refreshes the cached file; a failed one falls back to it.
func (l *UniverseLoader) Load(ctx context.Context, universe string) ([]string, error) {
	var (
		path  string
		fetch func(context.Context) ([]string, error)
	)
	switch universe {
	case config.UniverseN500:
		path, fetch = l.N500File, l.fetchNifty500
	case config.UniverseFnO:
		path, fetch = l.FnOFile, l.fetchFnO
	default:
		return nil, fmt.Errorf("unknown universe %q", universe)
	}

	if l.FetchTickers {
		symbols, err := fetch(ctx)
		if err == nil && len(symbols) > 0 {
			if err := SaveTickers(path, symbols); err != nil {
				log.Printf("[WARN] Cache %s tickers: %v", universe, err)
			}
			log.Printf("[INFO] Fetched %d %s tickers", len(symbols), universe)
			return symbols, nil
		}
		if err == nil {
			err = fmt.Errorf("empty list")
		}
		log.Printf("[WARN] Fetch %s tickers failed: %v, using %s", universe, err, path)
	}

	symbols, err := LoadTickers(path)
	if err != nil {
		return nil, fmt.Errorf("load %s tickers: %w", universe, err)
	}
	return symbols, nil
}

func (l *UniverseLoader) get(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return resp.Body, nil
}

func (l *UniverseLoader) fetchNifty500(ctx context.Context) ([]string, error) {
	body, err := l.get(ctx, l.Nifty500URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseNifty500(body, l.Suffix)
}

func (l *UniverseLoader) fetchFnO(ctx context.Context) ([]string, error) {
	body, err := l.get(ctx, l.FnOURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseFnOInstruments(body, l.Suffix)
}

// ParseNifty500 reads the index constituents CSV and returns its Symbol column with
// suffix appended.
func ParseNifty500(r io.Reader, suffix string) ([]string, error) {
	symbols, err := readSymbolColumn(r)
	if err != nil {
		return nil, fmt.Errorf("parse nifty 500 list: %w", err)
	}
	for i, s := range symbols {
		symbols[i] = s + suffix
	}
	return uniqueSorted(symbols), nil
}

type instrument struct {
	Segment          string `json:"segment"`
	UnderlyingSymbol string `json:"underlying_symbol"`
}

// ParseFnOInstruments reads the gzipped instrument dump and returns the distinct
// underlyings of the NSE derivatives segment.
func ParseFnOInstruments(r io.Reader, suffix string) ([]string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open instrument dump: %w", err)
	}
	defer gz.Close()

	var instruments []instrument
	if err := json.NewDecoder(gz).Decode(&instruments); err != nil {
		return nil, fmt.Errorf("decode instrument dump: %w", err)
	}

	var symbols []string
	for _, inst := range instruments {
		if inst.Segment != fnoSegment || inst.UnderlyingSymbol == "" {
			continue
		}
		symbols = append(symbols, inst.UnderlyingSymbol+suffix)
	}
	return uniqueSorted(symbols), nil
}

// LoadTickers reads a cached ticker file with a Symbol header.
func LoadTickers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	symbols, err := readSymbolColumn(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return uniqueSorted(symbols), nil
}

// SaveTickers writes symbols to path as a one-column CSV.
func SaveTickers(path string, symbols []string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{symbolColumn}); err != nil {
		return err
	}
	for _, s := range symbols {
		if err := w.Write([]string{s}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readSymbolColumn(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == symbolColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no %s column", symbolColumn)
	}

	var symbols []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if col >= len(rec) {
			continue
		}
		if s := strings.TrimSpace(rec[col]); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}

func uniqueSorted(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
