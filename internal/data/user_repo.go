package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
)

// UserRepo provides database operations for accounts and profiles.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

const userColumns = `
  id,
  username,
  email,
  password_hash,
  profile,
  credentials,
  created_at,
  updated_at
`

// Create inserts a new account with an empty profile.
func (r *UserRepo) Create(ctx context.Context, req *model.RegisterRequest, passwordHash string) (*model.User, error) {
	if req == nil {
		return nil, errors.New("register request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, errors.New("password hash is required")
	}

	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, profile, created_at, updated_at)
		VALUES ($1, $2, $3, '{}'::jsonb, $4, $4)
		RETURNING `+userColumns,
		strings.TrimSpace(req.Name),
		strings.ToLower(strings.TrimSpace(req.Email)),
		passwordHash,
		now,
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("insert user: %w", err))
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("user id is required")
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("user %s not found", id)
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get user by id: %w", err))
	}
	return user, nil
}

// GetByEmail retrieves a user by email. Lookup is case-insensitive.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("user with email %s not found", email)
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get user by email: %w", err))
	}
	return user, nil
}

// UpdateProfile replaces the stored profile document.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID string, profile model.Profile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return r.updateUserColumn(ctx, userID, "profile", doc)
}

// UpdateCredentials replaces the encrypted credential blob. The value must
// already be encrypted by the caller; this layer never sees plaintext.
func (r *UserRepo) UpdateCredentials(ctx context.Context, userID, encrypted string) error {
	return r.updateUserColumn(ctx, userID, "credentials", encrypted)
}

// UpdateResumePath records the stored resume location inside the profile document.
func (r *UserRepo) UpdateResumePath(ctx context.Context, userID, path string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.Validation("user id is required")
	}
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET profile = jsonb_set(profile, '{resume_path}', to_jsonb($2::text), true),
		    updated_at = $3
		WHERE id = $1
	`, userID, path, now)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("update resume path: %w", err))
	}
	return requireRowUpdated(res, userID)
}

func (r *UserRepo) updateUserColumn(ctx context.Context, userID, column string, value any) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.Validation("user id is required")
	}
	now := r.timeProvider.Now().UTC()
	// column is a compile-time constant at every call site, never user input.
	query := fmt.Sprintf(`UPDATE users SET %s = $2, updated_at = $3 WHERE id = $1`, column)
	res, err := r.DB.ExecContext(ctx, query, userID, value, now)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("update user %s: %w", column, err))
	}
	return requireRowUpdated(res, userID)
}

func requireRowUpdated(res sql.Result, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFoundf("user %s not found", userID)
	}
	return nil
}

type userRowScanner interface {
	Scan(dest ...any) error
}

func scanUser(scanner userRowScanner) (*model.User, error) {
	user := &model.User{}
	var profileDoc []byte
	if err := scanner.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&profileDoc,
		&user.Credentials,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(profileDoc) > 0 {
		if err := json.Unmarshal(profileDoc, &user.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
	}
	return user, nil
}
