package recorder

import "DeclineWatch/internal/model"

// Recorder persists analysis runs for later comparison.
type Recorder interface {
	RecordRun(result *model.AnalysisResult) error
	ListRuns(limit int) ([]model.RunSummary, error)
	Close() error
}
