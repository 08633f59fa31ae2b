package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1tanmay/repo-analyse/internal/aggregator"
	"github.com/1tanmay/repo-analyse/internal/collector"
	"github.com/1tanmay/repo-analyse/internal/domain"
	apperrors "github.com/1tanmay/repo-analyse/internal/errors"
	"github.com/1tanmay/repo-analyse/internal/normalizer"
)

// Runner fetches the raw repository data an analysis is built from.
type Runner interface {
	Collect(ctx context.Context, ref domain.RepositoryRef, tr domain.TimeRange) (*collector.RawData, error)
}

// Service owns the analysis runs of one process: it starts them, tracks
// their lifecycle and serves immutable snapshots once they finish. Runs
// live in memory only and disappear with the process.
type Service struct {
	runner     Runner
	normalizer *normalizer.Normalizer
	aggregator *aggregator.Aggregator
	logger     *slog.Logger

	mu   sync.RWMutex
	runs map[string]*run
}

type run struct {
	analysis Analysis
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewService creates a new analysis service
func NewService(runner Runner, logger *slog.Logger) *Service {
	return &Service{
		runner:     runner,
		normalizer: normalizer.New(logger),
		aggregator: aggregator.New(),
		logger:     logger,
		runs:       make(map[string]*run),
	}
}

// Start launches an analysis in the background and returns its pending
// snapshot. The run is detached from the caller's context; use Cancel or
// Close to stop it.
func (s *Service) Start(req Request) (Analysis, error) {
	if err := req.Validate(); err != nil {
		return Analysis{}, err
	}
	if req.Granularity == "" {
		req.Granularity = domain.GranularityDay
	}

	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{
		analysis: Analysis{
			ID:          uuid.New().String(),
			Repository:  req.Repository,
			Range:       req.Range,
			Granularity: req.Granularity,
			Status:      StatusPending,
			StartedAt:   time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.runs[rn.analysis.ID] = rn
	s.mu.Unlock()

	s.logger.Info("analysis started",
		"id", rn.analysis.ID,
		"repository", req.Repository.String(),
		"granularity", string(req.Granularity))

	go s.execute(ctx, rn, req)
	return rn.analysis, nil
}

// Run executes one analysis synchronously under the caller's context. It is
// the single-shot path used by the command line.
func (s *Service) Run(ctx context.Context, req Request) (*domain.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Granularity == "" {
		req.Granularity = domain.GranularityDay
	}
	return s.pipeline(ctx, uuid.New().String(), req)
}

// Snapshot returns the current state of a run. Terminal snapshots are
// stable: the same id keeps returning the same result.
func (s *Service) Snapshot(id string) (Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rn, ok := s.runs[id]
	if !ok {
		return Analysis{}, false
	}
	return rn.analysis, true
}

// Cancel aborts a run if it is still going and returns its snapshot as of
// the call. Cancelling a finished run changes nothing.
func (s *Service) Cancel(id string) (Analysis, bool) {
	s.mu.RLock()
	rn, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return Analysis{}, false
	}
	rn.cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return rn.analysis, true
}

// Close cancels every in-flight run and waits for their goroutines to land.
func (s *Service) Close() {
	s.mu.RLock()
	runs := make([]*run, 0, len(s.runs))
	for _, rn := range s.runs {
		runs = append(runs, rn)
	}
	s.mu.RUnlock()

	for _, rn := range runs {
		rn.cancel()
	}
	for _, rn := range runs {
		<-rn.done
	}
}

func (s *Service) execute(ctx context.Context, rn *run, req Request) {
	defer close(rn.done)
	defer rn.cancel()

	result, err := s.pipeline(ctx, rn.analysis.ID, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	rn.analysis.FinishedAt = time.Now().UTC()
	if err != nil {
		rn.analysis.Status = StatusFailed
		rn.analysis.FailureReason = apperrors.Reason(err)
		s.logger.Error("analysis failed",
			"id", rn.analysis.ID,
			"reason", rn.analysis.FailureReason,
			"error", err)
		return
	}
	rn.analysis.Status = StatusCompleted
	rn.analysis.Result = result
	s.logger.Info("analysis completed",
		"id", rn.analysis.ID,
		"commits", result.TotalCommits,
		"contributors", result.TotalContributors,
		"skipped", result.SkippedRecords)
}

func (s *Service) pipeline(ctx context.Context, id string, req Request) (*domain.AnalysisResult, error) {
	raw, err := s.runner.Collect(ctx, req.Repository, req.Range)
	if err != nil {
		return nil, err
	}

	data := s.normalizer.Normalize(raw)
	result := s.aggregator.Aggregate(aggregator.Input{
		Repository:   data.Repository,
		Commits:      data.Commits,
		Contributors: data.Contributors,
		Range:        req.Range,
		Granularity:  req.Granularity,
		Skipped:      data.Skipped,
	})
	result.ID = id
	return result, nil
}
