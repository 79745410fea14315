package errors

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, MapDBError(nil))
	})

	t.Run("no rows", func(t *testing.T) {
		err := MapDBError(sql.ErrNoRows)
		assert.True(t, IsNotFound(err))
	})

	t.Run("deadline", func(t *testing.T) {
		err := MapDBError(context.DeadlineExceeded)
		assert.True(t, IsTimeout(err))
	})

	t.Run("unique violation with detail", func(t *testing.T) {
		pgErr := &pgconn.PgError{
			Code:   pgerrcode.UniqueViolation,
			Detail: "Key (email)=(a@b.com) already exists.",
		}
		err := MapDBError(pgErr)
		require.True(t, IsConflict(err))
		assert.Equal(t, "email", GetField(err))
	})

	t.Run("not null violation", func(t *testing.T) {
		pgErr := &pgconn.PgError{
			Code:       pgerrcode.NotNullViolation,
			ColumnName: "job_url",
		}
		err := MapDBError(pgErr)
		require.True(t, IsValidation(err))
		assert.Equal(t, "job_url", GetField(err))
	})

	t.Run("unknown pg error", func(t *testing.T) {
		err := MapDBError(&pgconn.PgError{Code: pgerrcode.DiskFull})
		assert.True(t, IsInternal(err))
	})

	t.Run("unrecognized passes through", func(t *testing.T) {
		plain := assert.AnError
		assert.Equal(t, plain, MapDBError(plain))
	})
}
