package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveSymbol("N500_SWING", OutcomeEvaluated, 10*time.Millisecond)
	m.ObserveSymbol("N500_SWING", OutcomeEvaluated, 20*time.Millisecond)
	m.ObserveSymbol("N500_SWING", OutcomeNoData, time.Millisecond)
	m.ObserveRun("N500_SWING", "ok", 3*time.Second, 4)

	if got := testutil.ToFloat64(m.SymbolsTotal.WithLabelValues("N500_SWING", OutcomeEvaluated)); got != 2 {
		t.Errorf("evaluated: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.AllSignalsMet.WithLabelValues("N500_SWING")); got != 4 {
		t.Errorf("all signals met gauge: expected 4, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("N500_SWING", "ok")); got != 1 {
		t.Errorf("runs: expected 1, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSymbol("T", OutcomeError, time.Second)
	m.ObserveRun("T", "error", time.Second, 0)
	m.SetDeliverySymbols(10)
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetDeliverySymbols(1850)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "signalengine_delivery_symbols 1850") {
		t.Errorf("expected delivery gauge in output:\n%s", body)
	}
}
