package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeclineWatch/internal/calculator"
	"DeclineWatch/internal/model"
	"DeclineWatch/internal/recorder"
	"DeclineWatch/internal/scheduler"
	"DeclineWatch/internal/snapshot"
)

type fakeRunner struct {
	err     error
	running bool
	started int
}

func (f *fakeRunner) TriggerAsync() error {
	if f.err != nil {
		return f.err
	}
	f.started++
	return nil
}

func (f *fakeRunner) Running() bool { return f.running }

type failingHistory struct{}

func (failingHistory) RecordRun(*model.AnalysisResult) error { return nil }
func (failingHistory) Close() error                          { return nil }

func (failingHistory) ListRuns(int) ([]model.RunSummary, error) {
	return nil, errors.New("db locked")
}

func apiResult() *model.AnalysisResult {
	records := []model.DeclineRecord{
		{Stock: model.Stock{Code: "A", Market: model.MarketKOSPI}, DrawdownPct: -5},
		{Stock: model.Stock{Code: "B", Market: model.MarketKOSPI}, DrawdownPct: -50},
		{Stock: model.Stock{Code: "C", Market: model.MarketKOSDAQ}, DrawdownPct: -25},
	}
	return &model.AnalysisResult{
		RunID:     "run-api",
		StartedAt: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC),
		Records:   records,
		Excluded:  []model.Exclusion{},
		Stats:     calculator.AggregateStats(records, calculator.DefaultBuckets),
		Top:       calculator.RankTop(records, 20),
	}
}

func newTestServer(t *testing.T, withResult bool, history recorder.Recorder, runner Runner, reportDir string) http.Handler {
	t.Helper()
	snap, err := snapshot.NewManager("")
	require.NoError(t, err)
	if withResult {
		require.NoError(t, snap.Update(apiResult()))
	}
	return NewServer(snap, history, runner, reportDir).Handler()
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, true, nil, &fakeRunner{running: true}, "")
	rec := do(h, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Running)
	assert.Equal(t, "run-api", body.LatestRun)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLatest_NotFoundBeforeFirstRun(t *testing.T) {
	h := newTestServer(t, false, nil, nil, "")
	for _, path := range []string{"/api/decline/latest", "/api/decline/top"} {
		rec := do(h, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "no analysis result yet")
	}
}

func TestLatest(t *testing.T) {
	h := newTestServer(t, true, nil, nil, "")
	rec := do(h, http.MethodGet, "/api/decline/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var body model.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-api", body.RunID)
	assert.Len(t, body.Records, 3)
	assert.Equal(t, -50.0, body.Stats.Min.Value)
	assert.Equal(t, 1, body.Stats.Histogram["extreme"])
}

func TestTop(t *testing.T) {
	h := newTestServer(t, true, nil, nil, "")

	tests := []struct {
		query string
		codes []string
	}{
		{"", []string{"B", "C", "A"}},
		{"?n=2", []string{"B", "C"}},
		{"?n=0", []string{}},
		{"?n=99", []string{"B", "C", "A"}},
		{"?n=-1", []string{"B", "C", "A"}},
		{"?n=abc", []string{"B", "C", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(h, http.MethodGet, "/api/decline/top"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			var body topResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			codes := []string{}
			for _, r := range body.Records {
				codes = append(codes, r.Stock.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestRuns(t *testing.T) {
	r, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.RecordRun(apiResult()))

	h := newTestServer(t, true, r, nil, "")
	rec := do(h, http.MethodGet, "/api/decline/runs?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-api", runs[0].RunID)
	assert.Equal(t, 3, runs[0].Analyzed)

	rec = do(newTestServer(t, true, failingHistory{}, nil, ""), http.MethodGet, "/api/decline/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db locked")
}

func TestTriggerRun(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(t, false, nil, runner, "")

	rec := do(h, http.MethodPost, "/api/decline/run")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, runner.started)

	runner.err = scheduler.ErrRunInProgress
	rec = do(h, http.MethodPost, "/api/decline/run")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodGet, "/api/decline/run")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(newTestServer(t, false, nil, nil, ""), http.MethodPost, "/api/decline/run")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReportsAndCORS(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.html"), []byte("<h1>report</h1>"), 0644))
	h := newTestServer(t, false, nil, nil, dir)

	rec := do(h, http.MethodGet, "/reports/report.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>report</h1>")

	rec = do(h, http.MethodOptions, "/api/decline/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
