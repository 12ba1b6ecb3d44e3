package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"BreadthPull/internal/domain/models"
	drepo "BreadthPull/internal/domain/repository"
	"BreadthPull/pkg/logger"
)

// ErrNoReport is returned by Latest before the first successful run.
var ErrNoReport = errors.New("no report computed yet")

// Runner produces a fresh report.
type Runner interface {
	Run(ctx context.Context) (*models.Report, error)
}

// BreadthService keeps the latest report and refreshes it on a schedule.
type BreadthService struct {
	runner   Runner
	sinks    []drepo.ReportSink
	timeout  time.Duration
	interval time.Duration
	log      *logger.Logger

	runMu sync.Mutex

	mu      sync.RWMutex
	latest  *models.Report
	lastErr error
}

func NewBreadthService(runner Runner, sinks []drepo.ReportSink, timeout, interval time.Duration, log *logger.Logger) *BreadthService {
	if log == nil {
		log = logger.Nop()
	}
	return &BreadthService{
		runner:   runner,
		sinks:    sinks,
		timeout:  timeout,
		interval: interval,
		log:      log,
	}
}

// Refresh runs the pipeline once, replaces the latest report and publishes it
// to every sink. Concurrent calls are serialised.
func (s *BreadthService) Refresh(ctx context.Context) (*models.Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.runner.Run(runCtx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.latest = report
	s.lastErr = nil
	s.mu.Unlock()

	s.publish(ctx, report)
	return report, nil
}

func (s *BreadthService) publish(ctx context.Context, report *models.Report) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			s.log.Warn("report sink failed",
				logger.String("sink", sink.Name()),
				logger.String("run_id", report.RunID),
				logger.Error(err),
			)
		}
	}
}

// Latest returns the most recent successful report.
func (s *BreadthService) Latest() (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		if s.lastErr != nil {
			return nil, s.lastErr
		}
		return nil, ErrNoReport
	}
	return s.latest, nil
}

// LastError returns the error of the most recent run, nil if it succeeded.
func (s *BreadthService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Start refreshes immediately and then on every interval until ctx is done.
func (s *BreadthService) Start(ctx context.Context) {
	s.refreshLogged(ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshLogged(ctx)
		}
	}
}

func (s *BreadthService) refreshLogged(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		s.log.Error("scheduled refresh failed", logger.Error(err))
	}
}
