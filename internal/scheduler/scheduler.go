package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"DeclineWatch/internal/model"
	"DeclineWatch/internal/notifier"
	"DeclineWatch/internal/recorder"
	"DeclineWatch/internal/report"
	"DeclineWatch/internal/snapshot"
)

// ErrRunInProgress is returned when an analysis is started while another is running.
var ErrRunInProgress = errors.New("analysis run already in progress")

// Analyzer produces one analysis result.
type Analyzer interface {
	Collect(ctx context.Context) (*model.AnalysisResult, error)
}

// ReportWriter writes the report files of a run.
type ReportWriter interface {
	WriteAll(result *model.AnalysisResult) (report.Paths, error)
}

// Notifier delivers messages to the operator.
type Notifier interface {
	Enabled() bool
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron task and every way of starting a run.
type Scheduler struct {
	Cron     *cron.Cron
	Analyzer Analyzer
	Reports  ReportWriter
	Snapshot *snapshot.Manager
	Notifier Notifier
	Recorder recorder.Recorder
	Language notifier.Language
	Ctx      context.Context

	running atomic.Bool
}

// NewScheduler creates a new Scheduler. reports and tn may be nil.
func NewScheduler(ctx context.Context, an Analyzer, reports ReportWriter, snap *snapshot.Manager, tn Notifier, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Analyzer: an,
		Reports:  reports,
		Snapshot: snap,
		Notifier: tn,
		Recorder: rec,
		Language: notifier.Korean,
		Ctx:      ctx,
	}
}

// Register adds the analysis task.
func (s *Scheduler) Register(analysisCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// Running reports whether an analysis is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) analysisTask() {
	if _, err := s.RunNow(s.Ctx); err != nil {
		log.Printf("[ERROR] scheduled analysis: %v", err)
	}
}

// RunNow runs one analysis synchronously and publishes it: reports, history,
// snapshot and notification. Publishing failures are logged, not returned.
func (s *Scheduler) RunNow(ctx context.Context) (*model.AnalysisResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)
	return s.run(ctx)
}

// TriggerAsync starts an analysis in the background. It fails at once when
// a run is already in progress.
func (s *Scheduler) TriggerAsync() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	go func() {
		defer s.running.Store(false)
		if _, err := s.run(s.Ctx); err != nil {
			log.Printf("[ERROR] triggered analysis: %v", err)
		}
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) (*model.AnalysisResult, error) {
	log.Println("[INFO] running analysis task")
	result, err := s.Analyzer.Collect(ctx)
	if err != nil {
		s.Snapshot.RecordFailure(err)
		s.trySend(ctx, fmt.Sprintf("❌ 분석 실패: %v", err))
		return nil, fmt.Errorf("collect: %w", err)
	}

	if s.Reports != nil {
		if _, err := s.Reports.WriteAll(result); err != nil {
			log.Printf("[ERROR] write reports: %v", err)
		}
	}
	if err := s.Recorder.RecordRun(result); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}
	if err := s.Snapshot.Update(result); err != nil {
		log.Printf("[ERROR] save snapshot: %v", err)
	}
	s.trySend(ctx, notifier.FormatRunSummary(result, s.Language))
	return result, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return s.help()
	}
	switch fields[0] {
	case "/run", "분석":
		if err := s.TriggerAsync(); err != nil {
			return "⏳ 이미 분석이 진행 중입니다"
		}
		return "🚀 분석을 시작합니다"
	case "/latest", "최근결과":
		latest, ok := s.Snapshot.Latest()
		if !ok {
			return "아직 완료된 분석이 없습니다"
		}
		return notifier.FormatRunSummary(latest, s.Language)
	case "/top", "상위":
		latest, ok := s.Snapshot.Latest()
		if !ok {
			return "아직 완료된 분석이 없습니다"
		}
		top := latest.Top
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n >= 0 && n < len(top) {
				top = top[:n]
			}
		}
		return notifier.FormatTop(top, s.Language)
	default:
		return s.help()
	}
}

func (s *Scheduler) help() string {
	return "사용 가능한 명령:\n• /run 분석 실행\n• /latest 최근 결과\n• /top [n] 하락률 상위 종목"
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil || !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
