package screener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"SignalEngine/internal/calculator"
	"SignalEngine/internal/collector"
	"SignalEngine/internal/config"
	"SignalEngine/internal/metrics"
	"SignalEngine/internal/model"
	"SignalEngine/internal/recorder"
	"SignalEngine/internal/report"
	"SignalEngine/internal/strategy"
)

// UniverseSource resolves a universe name to its tickers.
type UniverseSource interface {
	Load(ctx context.Context, universe string) ([]string, error)
}

// DeliverySource supplies the latest delivery percentages.
type DeliverySource interface {
	Fetch(ctx context.Context) (model.DeliveryTable, time.Time, error)
}

// Engine runs analysis tasks: for every ticker of a universe it collects history,
// enriches it, evaluates the task's rule set and finally pivots the records.
type Engine struct {
	Collector *collector.Collector
	Universe  UniverseSource
	Delivery  DeliverySource // optional
	Swing     config.SwingRules
	Momentum  config.MomentumRules
	Suffix    string
	Workers   int
	Metrics   *metrics.Metrics // optional
	Now       func() time.Time
}

// NewEngine wires an engine from validated configuration.
func NewEngine(cfg *config.Config, col *collector.Collector, universe UniverseSource, delivery DeliverySource, m *metrics.Metrics) *Engine {
	return &Engine{
		Collector: col,
		Universe:  universe,
		Delivery:  delivery,
		Swing:     cfg.Swing,
		Momentum:  cfg.Momentum,
		Suffix:    cfg.DataSource.SymbolSuffix,
		Workers:   cfg.Workers,
		Metrics:   m,
		Now:       time.Now,
	}
}

// Result is the outcome of one task run.
type Result struct {
	Run     recorder.RunSummary
	Records []model.SignalRecord
	Report  *model.WideReport
}

// Snapshot is the market data shared by the tasks of one run. Each universe is
// loaded once and each symbol's history collected once, so every task of the run
// evaluates the same bars.
type Snapshot struct {
	Delivery model.DeliveryTable

	mu        sync.Mutex
	universes map[string][]string
	bars      map[string]*barsEntry
}

type barsEntry struct {
	once sync.Once
	bars []model.OHLCV
	err  error
}

// NewSnapshot creates an empty snapshot around a delivery table.
func NewSnapshot(delivery model.DeliveryTable) *Snapshot {
	return &Snapshot{
		Delivery:  delivery,
		universes: make(map[string][]string),
		bars:      make(map[string]*barsEntry),
	}
}

// universe returns the universe's tickers, loading them on first use. Failures are
// not cached.
func (s *Snapshot) universe(ctx context.Context, src UniverseSource, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if symbols, ok := s.universes[name]; ok {
		return symbols, nil
	}
	symbols, err := src.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	s.universes[name] = symbols
	return symbols, nil
}

// collect returns the symbol's bars, fetching them at most once per snapshot.
// The returned slice is shared and must not be modified.
func (s *Snapshot) collect(ctx context.Context, c *collector.Collector, symbol string) ([]model.OHLCV, error) {
	s.mu.Lock()
	entry, ok := s.bars[symbol]
	if !ok {
		entry = &barsEntry{}
		s.bars[symbol] = entry
	}
	s.mu.Unlock()

	entry.once.Do(func() { entry.bars, entry.err = c.Collect(ctx, symbol) })
	return entry.bars, entry.err
}

// LoadDelivery fetches the delivery table, degrading to an empty table on failure.
func (e *Engine) LoadDelivery(ctx context.Context) model.DeliveryTable {
	if e.Delivery == nil {
		return model.DeliveryTable{}
	}
	table, _, err := e.Delivery.Fetch(ctx)
	if err != nil {
		log.Printf("[WARN] delivery data unavailable, using 0%% for all symbols: %v", err)
		table = model.DeliveryTable{}
	}
	e.Metrics.SetDeliverySymbols(len(table))
	return table
}

// RunAll runs tasks in order over one shared snapshot: one delivery table, one
// ticker list per universe and one history per symbol. It stops at the first
// cancelled task and returns the results gathered so far with the context error.
func (e *Engine) RunAll(ctx context.Context, tasks []config.Task) ([]*Result, error) {
	snap := NewSnapshot(e.LoadDelivery(ctx))
	results := make([]*Result, 0, len(tasks))
	for _, task := range tasks {
		res, err := e.RunTask(ctx, task, snap)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			if ctx.Err() != nil {
				return results, err
			}
			log.Printf("[ERROR] task %s: %v", task.Name, err)
		}
	}
	return results, nil
}

// RunTask screens one task's universe. Per-symbol failures are logged and counted,
// never fatal. On cancellation the symbols already processed are still pivoted and
// returned together with the context error. A nil snapshot screens against fresh
// data and no delivery figures.
func (e *Engine) RunTask(ctx context.Context, task config.Task, snap *Snapshot) (*Result, error) {
	if snap == nil {
		snap = NewSnapshot(nil)
	}
	started := e.Now()
	res := &Result{Run: recorder.RunSummary{
		RunID:     uuid.NewString(),
		Task:      task.Name,
		RuleSet:   task.RuleSet,
		Universe:  task.Universe,
		StartedAt: started,
		Status:    recorder.StatusOK,
	}}
	finish := func(err error) (*Result, error) {
		res.Report = report.Pivot(res.Records, task.Name)
		_, res.Run.AllMet = report.Summary(res.Report)
		res.Run.FinishedAt = e.Now()
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			res.Run.Status = recorder.StatusCancelled
			res.Run.Error = err.Error()
		default:
			res.Run.Status = recorder.StatusFailed
			res.Run.Error = err.Error()
		}
		e.Metrics.ObserveRun(task.Name, res.Run.Status, res.Run.FinishedAt.Sub(started), res.Run.AllMet)
		return res, err
	}

	symbols, err := snap.universe(ctx, e.Universe, task.Universe)
	if err != nil {
		return finish(fmt.Errorf("load universe %s: %w", task.Universe, err))
	}
	res.Run.Symbols = len(symbols)
	log.Printf("[INFO] %s: screening %d symbols with %s rules", task.Name, len(symbols), task.RuleSet)

	type slot struct {
		done    bool
		records []model.SignalRecord
	}
	slots := make([]slot, len(symbols))

	g := new(errgroup.Group)
	g.SetLimit(max(e.Workers, 1))
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		i, symbol := i, symbol
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i].records = e.screenSymbol(ctx, task, symbol, snap)
			slots[i].done = true
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range slots {
		if !s.done {
			continue
		}
		if s.records != nil {
			res.Run.Evaluated++
		} else {
			res.Run.Skipped++
		}
		res.Records = append(res.Records, s.records...)
	}
	log.Printf("[INFO] %s: %d evaluated, %d skipped", task.Name, res.Run.Evaluated, res.Run.Skipped)
	return finish(ctx.Err())
}

// screenSymbol returns the symbol's signal records, or nil when it was skipped.
func (e *Engine) screenSymbol(ctx context.Context, task config.Task, symbol string, snap *Snapshot) []model.SignalRecord {
	start := time.Now()
	stock := collector.StripSuffix(symbol, e.Suffix)

	outcome := metrics.OutcomeEvaluated
	defer func() { e.Metrics.ObserveSymbol(task.Name, outcome, time.Since(start)) }()

	bars, err := snap.collect(ctx, e.Collector, symbol)
	if err != nil {
		outcome = metrics.OutcomeNoData
		if !errors.Is(err, collector.ErrNoData) {
			outcome = metrics.OutcomeError
		}
		log.Printf("[WARN] %s: skip %s: %v", task.Name, stock, err)
		return nil
	}

	records, err := e.Evaluate(task.RuleSet, stock, bars, snap.Delivery.Lookup(stock))
	switch {
	case errors.Is(err, calculator.ErrInsufficientHistory):
		outcome = metrics.OutcomeShortHistory
	case errors.Is(err, strategy.ErrEmptySeries):
		outcome = metrics.OutcomeIncomplete
	case err != nil:
		outcome = metrics.OutcomeError
	}
	if err != nil {
		log.Printf("[WARN] %s: skip %s: %v", task.Name, stock, err)
		return nil
	}
	return records
}

// Evaluate runs the core pipeline for one stock's bars: enrich, then check the
// named rule set against the newest complete bar.
func (e *Engine) Evaluate(ruleSet, stock string, bars []model.OHLCV, deliveryPct float64) ([]model.SignalRecord, error) {
	series, err := calculator.Enrich(bars, e.Swing, e.Momentum, deliveryPct)
	if err != nil {
		return nil, err
	}

	var checks []model.SignalCheck
	switch ruleSet {
	case config.RuleSetSwing:
		checks, err = strategy.EvaluateSwing(series, e.Swing)
	case config.RuleSetMomentum:
		checks, err = strategy.EvaluateMomentum(series, e.Momentum)
	default:
		return nil, fmt.Errorf("unknown rule set %q", ruleSet)
	}
	if err != nil {
		return nil, err
	}

	ts := e.Now()
	records := make([]model.SignalRecord, len(checks))
	for i, c := range checks {
		records[i] = model.SignalRecord{SignalCheck: c, Timestamp: ts, Stock: stock}
	}
	return records, nil
}
