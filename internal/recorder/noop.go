package recorder

import "SignalEngine/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunSummary, _ *model.WideReport) error { return nil }
func (n *NoopRecorder) LatestReport(_ string) (*RunSummary, *model.WideReport, error) {
	return nil, nil, ErrNoHistory
}
func (n *NoopRecorder) Close() error { return nil }
