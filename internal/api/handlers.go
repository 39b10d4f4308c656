package api

import (
	"errors"
	"net/http"
	"time"

	"DeclineWatch/internal/model"
	"DeclineWatch/internal/scheduler"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Running   bool      `json:"running"`
	LatestRun string    `json:"latest_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Time      time.Time `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.snap.GetState()
	resp := healthResponse{
		Status:    "ok",
		Running:   s.runner != nil && s.runner.Running(),
		LastError: st.LastError,
		Time:      time.Now().UTC(),
	}
	if st.Latest != nil {
		resp.LatestRun = st.Latest.RunID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) latest(w http.ResponseWriter) (*model.AnalysisResult, bool) {
	result, ok := s.snap.Latest()
	if !ok {
		respondWithError(w, http.StatusNotFound, "no analysis result yet", nil)
	}
	return result, ok
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	result, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type topResponse struct {
	RunID   string                `json:"run_id"`
	Records []model.DeclineRecord `json:"records"`
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	result, ok := s.latest(w)
	if !ok {
		return
	}
	n := getIntParam(r, "n", len(result.Top), intPtr(0), nil)
	top := result.Top
	if n < len(top) {
		top = top[:n]
	}
	writeJSON(w, http.StatusOK, topResponse{RunID: result.RunID, Records: top})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", 20, intPtr(1), intPtr(500))
	runs, err := s.history.ListRuns(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		respondWithError(w, http.StatusServiceUnavailable, "runs are disabled", nil)
		return
	}
	if err := s.runner.TriggerAsync(); err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			respondWithError(w, http.StatusConflict, "analysis run already in progress", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to start run", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
