// Package data provides PostgreSQL-backed repositories.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/applyflow/applyflow-api/internal/data/pgxutil"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
)

// RepoConfig holds configuration options shared by repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// ApplicationRepo provides database operations for application lifecycle management.
type ApplicationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewApplicationRepo creates a new ApplicationRepo with the given database connection and configuration.
func NewApplicationRepo(db *sql.DB, cfg RepoConfig) *ApplicationRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationRepo{DB: db, timeProvider: tp, logger: logger}
}

const applicationColumns = `
  id,
  user_id,
  job_url,
  status,
  result,
  error,
  started_at,
  finished_at,
  created_at,
  updated_at
`

// Create inserts a new application in the processing state.
func (r *ApplicationRepo) Create(ctx context.Context, req *model.SubmitApplicationRequest) (*model.Application, error) {
	if req == nil {
		return nil, errors.New("submit application request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	var out model.Application
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO applications (user_id, job_url, status, created_at, updated_at)
			VALUES ($1, $2, 'processing', $3, $3)
			RETURNING `+applicationColumns,
			req.UserID,
			strings.TrimSpace(req.JobURL),
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Application])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("insert application: %w", err))
	}
	return &out, nil
}

// GetByID retrieves an application by ID.
func (r *ApplicationRepo) GetByID(ctx context.Context, id string) (*model.Application, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("application id is required")
	}

	var out model.Application
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+applicationColumns+`
			FROM applications
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Application])
		return err
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("application %s not found", id)
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get application: %w", err))
	}
	return &out, nil
}

// MarkStarted records the moment a worker picked the application up.
// Returns false when the application is no longer in processing.
func (r *ApplicationRepo) MarkStarted(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE applications
		SET started_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status = 'processing'
	`, id, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("mark application started: %w", err))
	}
	return rowsAffected(res)
}

// Complete transitions the application from processing to completed.
// Returns false when the row was already terminal; the stored outcome wins.
func (r *ApplicationRepo) Complete(ctx context.Context, id, result string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE applications
		SET status = 'completed',
		    result = $2,
		    error = NULL,
		    finished_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, result, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("complete application: %w", err))
	}
	return rowsAffected(res)
}

// Fail transitions the application from processing to failed with the given error message.
func (r *ApplicationRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE applications
		SET status = 'failed',
		    error = $2,
		    finished_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, errMsg, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("fail application: %w", err))
	}
	return rowsAffected(res)
}

// Cancel transitions the application from processing to cancelled.
func (r *ApplicationRepo) Cancel(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE applications
		SET status = 'cancelled',
		    finished_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status = 'processing'
	`, id, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("cancel application: %w", err))
	}
	return rowsAffected(res)
}

// StatsByUser returns per-status counts of a user's applications.
func (r *ApplicationRepo) StatsByUser(ctx context.Context, userID string) (*model.ApplicationStats, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Validation("user id is required")
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM applications
		WHERE user_id = $1
		GROUP BY status
	`, userID)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("query application stats: %w", err))
	}
	defer func() {
		_ = rows.Close()
	}()

	stats := &model.ApplicationStats{}
	for rows.Next() {
		var status model.ApplicationStatus
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("scan application stats: %w", scanErr)
		}
		switch status {
		case model.StatusProcessing:
			stats.Processing = count
		case model.StatusCompleted:
			stats.Completed = count
		case model.StatusFailed:
			stats.Failed = count
		case model.StatusCancelled:
			stats.Cancelled = count
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate application stats: %w", rowsErr)
	}
	return stats, nil
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
