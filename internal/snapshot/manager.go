package snapshot

import (
	"fmt"
	"log"
	"sync"
	"time"

	"DeclineWatch/internal/model"
)

// Manager holds the latest analysis result with concurrency safety and
// mirrors it to disk so a restart can serve the previous run.
type Manager struct {
	mu       sync.Mutex
	state    *State
	filePath string
}

// NewManager creates a Manager, loading any saved state from disk.
// An empty filePath keeps the state in memory only.
func NewManager(filePath string) (*Manager, error) {
	state := &State{}
	if filePath != "" {
		var err error
		if state, err = LoadState(filePath); err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
	}
	if state.Latest != nil {
		log.Printf("[INFO] restored snapshot of run %s (%d records)",
			state.Latest.RunID, len(state.Latest.Records))
	}
	return &Manager{state: state, filePath: filePath}, nil
}

// Latest returns the most recent result, or false when no run has completed.
func (m *Manager) Latest() (*model.AnalysisResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Latest, m.state.Latest != nil
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// Update replaces the latest result and clears the last error.
func (m *Manager) Update(result *model.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Latest = result
	m.state.RunCount++
	m.state.LastError = ""
	m.state.LastErrorAt = time.Time{}
	return m.save()
}

// RecordFailure notes a failed run. The previous result stays available.
func (m *Manager) RecordFailure(runErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastError = runErr.Error()
	m.state.LastErrorAt = time.Now()
	if err := m.save(); err != nil {
		log.Printf("[ERROR] failed to save snapshot after run failure: %v", err)
	}
}

func (m *Manager) save() error {
	if m.filePath == "" {
		return nil
	}
	return SaveState(m.filePath, m.state)
}
