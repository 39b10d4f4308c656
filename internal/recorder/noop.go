package recorder

import "DeclineWatch/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.AnalysisResult) error { return nil }

func (n *NoopRecorder) ListRuns(_ int) ([]model.RunSummary, error) {
	return []model.RunSummary{}, nil
}

func (n *NoopRecorder) Close() error { return nil }
