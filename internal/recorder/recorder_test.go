package recorder

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"SignalEngine/internal/model"
)

func sampleReport(task string, at time.Time) *model.WideReport {
	return &model.WideReport{
		Task: task,
		Rows: []model.ReportRow{
			{
				Timestamp: at, Stock: "INFY", TradeType: task, AllSignalsMet: true, SignalsScore: "2/2",
				Indicators: []model.IndicatorColumns{
					{Name: "1. Price > EMA_50", Status: "TRUE", Threshold: ">1500.00", Current: "1520.10"},
					{Name: "2. Price > EMA_200", Status: "TRUE", Threshold: ">1400.00", Current: "1520.10"},
				},
			},
			{
				Timestamp: at, Stock: "WIPRO", TradeType: task, SignalsScore: "0/2",
				Indicators: []model.IndicatorColumns{
					{Name: "1. Price > EMA_50", Status: "FALSE", Threshold: ">300.00", Current: "290.00"},
					{Name: "2. Price > EMA_200", Status: "FALSE", Threshold: ">310.00", Current: "290.00"},
				},
			},
		},
	}
}

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	r, err := NewSQLiteRecorder(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, _, err := r.LatestReport("N500_SWING"); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory on empty db, got %v", err)
	}

	first := time.Date(2025, 3, 13, 16, 30, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 1)
	for i, at := range []time.Time{first, second} {
		run := &RunSummary{
			RunID: []string{"run-1", "run-2"}[i], Task: "N500_SWING", RuleSet: "swing", Universe: "n500",
			StartedAt: at.Add(-time.Minute), FinishedAt: at,
			Symbols: 3, Evaluated: 2, Skipped: 1, AllMet: 1, Status: StatusOK,
		}
		if err := r.RecordRun(run, sampleReport("N500_SWING", at)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	run, rep, err := r.LatestReport("N500_SWING")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if run.RunID != "run-2" || run.Skipped != 1 || run.Status != StatusOK {
		t.Errorf("unexpected run %+v", run)
	}
	if !run.FinishedAt.Equal(second) {
		t.Errorf("finished at: expected %v, got %v", second, run.FinishedAt)
	}

	want := sampleReport("N500_SWING", second)
	if len(rep.Rows) != len(want.Rows) {
		t.Fatalf("expected %d rows, got %d", len(want.Rows), len(rep.Rows))
	}
	for i := range want.Rows {
		got, exp := rep.Rows[i], want.Rows[i]
		if !got.Timestamp.Equal(exp.Timestamp) {
			t.Errorf("row %d timestamp: expected %v, got %v", i, exp.Timestamp, got.Timestamp)
		}
		got.Timestamp, exp.Timestamp = time.Time{}, time.Time{}
		if !reflect.DeepEqual(got, exp) {
			t.Errorf("row %d:\n  got  %+v\n  want %+v", i, got, exp)
		}
	}

	if _, _, err := r.LatestReport("FNO_SWING"); !errors.Is(err, ErrNoHistory) {
		t.Errorf("other task: expected ErrNoHistory, got %v", err)
	}
}

func TestSQLiteRecorder_EmptyReportAndDuplicateRun(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "sub", "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	run := &RunSummary{RunID: "x", Task: "FNO_MOMENTUM", StartedAt: time.Now(), FinishedAt: time.Now(),
		Status: StatusCancelled, Error: "context canceled"}
	if err := r.RecordRun(run, &model.WideReport{Task: "FNO_MOMENTUM"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, rep, err := r.LatestReport("FNO_MOMENTUM")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.Error != "context canceled" || !rep.Empty() {
		t.Errorf("unexpected %+v %+v", got, rep)
	}

	if err := r.RecordRun(run, nil); err == nil {
		t.Error("duplicate run id should fail")
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordRun(&RunSummary{}, nil); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if _, _, err := r.LatestReport("X"); !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}
}
