package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/applyflow/applyflow-api/config"
	"github.com/applyflow/applyflow-api/internal/core"
	obserrors "github.com/applyflow/applyflow-api/internal/observability/errors"
	"github.com/applyflow/applyflow-api/internal/observability/metrics"
	"github.com/applyflow/applyflow-api/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ApplicationRepository // Required: application repository
	Config  config.ReaperConfig        // Required: reaper configuration
	Logger  *slog.Logger               // Optional: structured logger
	Metrics statsd.Sink                // Optional: metrics sink (StatsD-compatible)
}

// ReaperService performs periodic cleanup:
// - force-failing processing applications that exceeded the run deadline
//   (crashed workers, lost agents), and
// - deleting terminal applications past the retention window.
type ReaperService struct {
	repo    core.ApplicationRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ApplicationRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger.With("component", "reaper_service"),
		metrics: opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service",
		"interval", s.config.Interval,
		"processing_max_age", s.config.ProcessingMaxAge,
		"terminal_max_age", s.config.TerminalMaxAge,
	)

	// Jitter spreads ticks when multiple instances start together.
	s.waitWithJitter(ctx)
	if ctx.Err() != nil {
		return nil
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

// waitWithJitter sleeps up to 10% of the interval before the first run.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// runCleanup performs one cleanup pass. Errors are logged and counted, never
// fatal: the loop keeps running on the next tick.
func (s *ReaperService) runCleanup(ctx context.Context) {
	start := time.Now()

	staleCount, staleErr := s.failStaleProcessing(ctx)
	prunedCount, prunedErr := s.deleteOldTerminal(ctx)

	s.emitCleanupMetrics(cleanupOutcome{
		StaleCount:  staleCount,
		StaleErr:    staleErr,
		PrunedCount: prunedCount,
		PrunedErr:   prunedErr,
		Elapsed:     time.Since(start),
	})
}

// failStaleProcessing force-fails processing applications older than the run
// deadline. Loops in batches until no rows are affected.
func (s *ReaperService) failStaleProcessing(ctx context.Context) (int64, error) {
	var total int64
	for {
		count, err := s.repo.FailStaleProcessing(ctx, s.config.ProcessingMaxAge, s.config.BatchSize)
		if err != nil {
			s.logCleanupError(ctx, err, "fail stale processing applications")
			return total, err
		}
		total += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}

	if total > 0 {
		s.logger.InfoContext(ctx, "failed stale processing applications",
			"count", total,
			"max_age", s.config.ProcessingMaxAge,
		)
	}
	return total, nil
}

// deleteOldTerminal prunes terminal applications past the retention window.
func (s *ReaperService) deleteOldTerminal(ctx context.Context) (int64, error) {
	var total int64
	for {
		count, err := s.repo.DeleteOldTerminal(ctx, s.config.TerminalMaxAge, s.config.BatchSize)
		if err != nil {
			s.logCleanupError(ctx, err, "delete old terminal applications")
			return total, err
		}
		total += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}

	if total > 0 {
		s.logger.InfoContext(ctx, "deleted old terminal applications",
			"count", total,
			"max_age", s.config.TerminalMaxAge,
		)
	}
	return total, nil
}

type cleanupOutcome struct {
	StaleCount  int64
	StaleErr    error
	PrunedCount int64
	PrunedErr   error
	Elapsed     time.Duration
}

func (s *ReaperService) emitCleanupMetrics(o cleanupOutcome) {
	if s.metrics == nil {
		return
	}

	firstErr := o.StaleErr
	if firstErr == nil {
		firstErr = o.PrunedErr
	}

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if o.StaleCount+o.PrunedCount == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)
	if o.Elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", o.Elapsed, metrics.CloneTags(tags))
	}

	s.emitOperationMetric("fail_stale", o.StaleCount, o.StaleErr)
	s.emitOperationMetric("delete_terminal", o.PrunedCount, o.PrunedErr)

	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitOperationMetric(operation string, count int64, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": operation,
		"result":    result,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup_operation", 1, tags)
	if err == nil && count > 0 {
		s.metrics.Count("reaper.applications_processed", count, metrics.CloneTags(tags))
	}
}

func (s *ReaperService) logCleanupError(ctx context.Context, err error, label string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}
