package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"DeclineWatch/internal/recorder"
	"DeclineWatch/internal/snapshot"
)

// Runner starts analysis runs.
type Runner interface {
	TriggerAsync() error
	Running() bool
}

// Server exposes the latest analysis and the run history over HTTP.
type Server struct {
	snap      *snapshot.Manager
	history   recorder.Recorder
	runner    Runner
	reportDir string
}

// NewServer creates a Server. reportDir is served under /reports/ when set.
func NewServer(snap *snapshot.Manager, history recorder.Recorder, runner Runner, reportDir string) *Server {
	if history == nil {
		history = recorder.NewNoopRecorder()
	}
	return &Server{
		snap:      snap,
		history:   history,
		runner:    runner,
		reportDir: reportDir,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/decline/latest", s.handleLatest)
	mux.HandleFunc("GET /api/decline/top", s.handleTop)
	mux.HandleFunc("GET /api/decline/runs", s.handleRuns)
	mux.HandleFunc("POST /api/decline/run", s.handleTriggerRun)

	if s.reportDir != "" {
		mux.Handle("GET /reports/", http.StripPrefix("/reports/", http.FileServer(http.Dir(s.reportDir))))
	}

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] API server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Println("[INFO] API server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[INFO] %s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
