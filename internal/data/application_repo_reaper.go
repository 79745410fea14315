package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/applyflow/applyflow-api/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 1000 is reserved for applyflow reaper operations.
const (
	advisoryLockReaperMajor          = 1000
	advisoryLockReaperFailProcessing = 1 // minor key for FailStaleProcessing
	advisoryLockReaperDelete         = 2 // minor key for DeleteOldTerminal
)

// FailStaleProcessing marks processing applications older than maxAge as failed.
// Processes up to batchSize rows per call to prevent long locks and I/O spikes.
// Uses advisory locks to prevent concurrent reaper instances from conflicting.
// Returns the number of applications marked as failed.
func (r *ApplicationRepo) FailStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockReaperMajor, advisoryLockReaperFailProcessing).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			cutoffTime := currentTime.Add(-maxAge)

			res, err := tx.ExecContext(ctx, `
				UPDATE applications
				SET status = 'failed',
					error = 'application timed out in processing',
					finished_at = $1,
					updated_at = $1
				WHERE id IN (
					SELECT id FROM applications
					WHERE status = 'processing'
					  AND created_at < $2
					ORDER BY created_at
					LIMIT $3
				)
			`, currentTime.UTC(), cutoffTime.UTC(), batchSize)
			if err != nil {
				return fmt.Errorf("fail stale processing applications: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DeleteOldTerminal deletes terminal applications older than maxAge.
// Processes up to batchSize rows per call to prevent long locks and I/O spikes.
// Returns the number of applications deleted.
func (r *ApplicationRepo) DeleteOldTerminal(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockReaperMajor, advisoryLockReaperDelete).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoffTime := r.timeProvider.Now().Add(-maxAge)

			res, err := tx.ExecContext(ctx, `
				DELETE FROM applications
				WHERE id IN (
					SELECT id FROM applications
					WHERE status IN ('completed', 'failed', 'cancelled')
					  AND (finished_at < $1 OR (finished_at IS NULL AND updated_at < $1))
					ORDER BY COALESCE(finished_at, updated_at)
					LIMIT $2
				)
			`, cutoffTime.UTC(), batchSize)
			if err != nil {
				return fmt.Errorf("delete old terminal applications: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
