package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Symbol outcome labels.
const (
	OutcomeEvaluated    = "evaluated"
	OutcomeNoData       = "no_data"
	OutcomeShortHistory = "insufficient_history"
	OutcomeIncomplete   = "incomplete"
	OutcomeError        = "error"
)

// Metrics holds the Prometheus collectors for analysis runs.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec   // labels: task, status
	RunDuration     *prometheus.HistogramVec // labels: task
	SymbolsTotal    *prometheus.CounterVec   // labels: task, outcome
	SymbolDuration  prometheus.Histogram
	AllSignalsMet   *prometheus.GaugeVec // labels: task
	LastRunUnixTime *prometheus.GaugeVec // labels: task
	DeliverySymbols prometheus.Gauge
}

// New creates the metrics on their own registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_runs_total",
			Help: "Analysis task runs by final status",
		}, []string{"task", "status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalengine_run_duration_seconds",
			Help:    "Wall time of one analysis task",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"task"}),
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_symbols_total",
			Help: "Symbols processed by outcome",
		}, []string{"task", "outcome"}),
		SymbolDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalengine_symbol_duration_seconds",
			Help:    "Fetch, enrich and evaluate latency per symbol",
			Buckets: prometheus.DefBuckets,
		}),
		AllSignalsMet: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalengine_all_signals_met",
			Help: "Stocks meeting every criterion in the latest run",
		}, []string{"task"}),
		LastRunUnixTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalengine_last_run_timestamp_seconds",
			Help: "Completion time of the latest run",
		}, []string{"task"}),
		DeliverySymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_delivery_symbols",
			Help: "Symbols in the loaded delivery table",
		}),
	}

	m.Registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.SymbolsTotal,
		m.SymbolDuration,
		m.AllSignalsMet,
		m.LastRunUnixTime,
		m.DeliverySymbols,
	)
	return m
}

// ObserveSymbol records one symbol's outcome and latency.
func (m *Metrics) ObserveSymbol(task, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SymbolsTotal.WithLabelValues(task, outcome).Inc()
	m.SymbolDuration.Observe(d.Seconds())
}

// ObserveRun records a finished task run.
func (m *Metrics) ObserveRun(task, status string, d time.Duration, allMet int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(task, status).Inc()
	m.RunDuration.WithLabelValues(task).Observe(d.Seconds())
	m.AllSignalsMet.WithLabelValues(task).Set(float64(allMet))
	m.LastRunUnixTime.WithLabelValues(task).SetToCurrentTime()
}

// SetDeliverySymbols records the size of the delivery table used by a run.
func (m *Metrics) SetDeliverySymbols(n int) {
	if m == nil {
		return
	}
	m.DeliverySymbols.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
