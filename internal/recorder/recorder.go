package recorder

import (
	"errors"
	"time"

	"SignalEngine/internal/model"
)

// ErrNoHistory is returned when no finished run exists for a task.
var ErrNoHistory = errors.New("no recorded run")

// Run status values.
const (
	StatusOK        = "ok"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RunSummary describes one analysis task execution.
type RunSummary struct {
	RunID      string
	Task       string
	RuleSet    string
	Universe   string
	StartedAt  time.Time
	FinishedAt time.Time
	Symbols    int // universe size
	Evaluated  int // symbols that produced signal checks
	Skipped    int
	AllMet     int
	Status     string
	Error      string
}

// Recorder persists finished analysis runs and their reports.
type Recorder interface {
	RecordRun(run *RunSummary, report *model.WideReport) error
	LatestReport(task string) (*RunSummary, *model.WideReport, error)
	Close() error
}
