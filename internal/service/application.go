package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/applyflow/applyflow-api/internal/core"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
	"github.com/applyflow/applyflow-api/internal/observability/metrics"
	"github.com/applyflow/applyflow-api/internal/observability/statsd"
)

// RunQueue is the dispatcher-side admission interface. Reserve claims
// processing capacity before the durable record exists; exactly one of the
// returned functions must be called.
type RunQueue interface {
	Reserve() (commit func(applicationID string), release func(), err error)
	QueueDepth() int
}

// ApplicationServiceOptions groups dependencies for ApplicationService.
type ApplicationServiceOptions struct {
	Repo      core.ApplicationRepository // Required: application repository
	Queue     RunQueue                   // Required: dispatcher admission queue
	CancelBus core.CancelBus             // Optional: in-flight run interruption
	Logger    *slog.Logger               // Optional: structured logger
	Metrics   statsd.Sink                // Optional: metrics sink (StatsD-compatible)
}

// ApplicationService owns the application lifecycle as seen from the API:
// submission, status polling, owner-guarded cancellation, and per-user stats.
type ApplicationService struct {
	repo      core.ApplicationRepository
	queue     RunQueue
	cancelBus core.CancelBus
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewApplicationService constructs a new ApplicationService.
func NewApplicationService(opts ApplicationServiceOptions) (*ApplicationService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ApplicationRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("RunQueue is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ApplicationService{
		repo:      opts.Repo,
		queue:     opts.Queue,
		cancelBus: opts.CancelBus,
		logger:    logger.With("component", "application_service"),
		metrics:   opts.Metrics,
	}, nil
}

// Submit validates the request, reserves queue capacity, and only then
// creates the durable processing record. A full queue rejects the submission
// before anything is written, so every stored record is either queued or
// already terminal.
func (s *ApplicationService) Submit(
	ctx context.Context,
	req *model.SubmitApplicationRequest,
) (*model.Application, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	commit, release, err := s.queue.Reserve()
	if err != nil {
		s.logger.WarnContext(ctx, "submission rejected, queue full",
			"user_id", req.UserID,
			"queue_depth", s.queue.QueueDepth(),
		)
		s.emit("submitted", metrics.ResultError, 0, err)
		return nil, err
	}

	start := time.Now()
	app, err := s.repo.Create(ctx, req)
	if err != nil {
		release()
		s.emit("submitted", metrics.ResultError, time.Since(start), err)
		return nil, fmt.Errorf("create application: %w", err)
	}
	commit(app.ID)

	s.logger.InfoContext(ctx, "application submitted",
		"application_id", app.ID,
		"user_id", app.UserID,
		"job_url", app.JobURL,
	)
	s.emit("submitted", metrics.ResultSuccess, time.Since(start), nil)
	return app, nil
}

// GetStatus returns the status view of an application owned by userID.
// Unknown ids map to not-found; another user's application is unauthorized.
func (s *ApplicationService) GetStatus(
	ctx context.Context,
	userID, applicationID string,
) (*model.ApplicationStatusResponse, error) {
	app, err := s.getOwned(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}
	return app.StatusResponse(), nil
}

// Cancel performs an owner-guarded cancellation. The durable store is the
// authority: terminal applications report an invalid-state conflict, and the
// cancel signal to interrupt an in-flight run is broadcast only after the row
// transition succeeded.
func (s *ApplicationService) Cancel(ctx context.Context, userID, applicationID string) (*model.Application, error) {
	app, err := s.getOwned(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}

	if app.Status.Terminal() {
		return nil, apperrors.InvalidStatef("application is already %s", app.Status)
	}

	start := time.Now()
	applied, err := s.repo.Cancel(ctx, applicationID)
	if err != nil {
		s.emit("cancelled", metrics.ResultError, time.Since(start), err)
		return nil, fmt.Errorf("cancel application: %w", err)
	}
	if !applied {
		// Lost the race against a worker finishing the run.
		s.emit("cancelled", metrics.ResultNoop, time.Since(start), nil)
		current, getErr := s.repo.GetByID(ctx, applicationID)
		if getErr != nil {
			return nil, fmt.Errorf("reload application: %w", getErr)
		}
		return nil, apperrors.InvalidStatef("application is already %s", current.Status)
	}

	s.publishCancel(ctx, applicationID)

	s.logger.InfoContext(ctx, "application cancelled",
		"application_id", applicationID,
		"user_id", userID,
	)
	s.emit("cancelled", metrics.ResultSuccess, time.Since(start), nil)

	cancelled, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("reload application: %w", err)
	}
	return cancelled, nil
}

// Stats returns per-status counts for the user's applications.
func (s *ApplicationService) Stats(ctx context.Context, userID string) (*model.ApplicationStats, error) {
	stats, err := s.repo.StatsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load application stats: %w", err)
	}
	return stats, nil
}

// getOwned loads an application and enforces ownership. The two failure
// modes stay distinct so the HTTP layer can render 404 vs 403.
func (s *ApplicationService) getOwned(ctx context.Context, userID, applicationID string) (*model.Application, error) {
	if applicationID == "" {
		return nil, apperrors.Validation("application id is required")
	}

	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.UserID != userID {
		return nil, apperrors.Unauthorized("application belongs to another user")
	}
	return app, nil
}

// publishCancel is best-effort: the row is already cancelled, a missed
// signal only means the in-flight run finishes on its own and its terminal
// write becomes a no-op.
func (s *ApplicationService) publishCancel(ctx context.Context, applicationID string) {
	if s.cancelBus == nil {
		return
	}
	if err := s.cancelBus.PublishCancel(ctx, applicationID); err != nil {
		s.logger.WarnContext(ctx, "publish cancel signal",
			"application_id", applicationID,
			"error", err,
		)
	}
}

func (s *ApplicationService) emit(transition, result string, elapsed time.Duration, err error) {
	metrics.EmitApplicationLifecycle(s.metrics, metrics.ApplicationMetric{
		Transition: transition,
		Result:     result,
		Duration:   elapsed,
		Err:        err,
	})
}
