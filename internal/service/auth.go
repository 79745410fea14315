package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/applyflow/applyflow-api/config"
	"github.com/applyflow/applyflow-api/internal/core"
	"github.com/applyflow/applyflow-api/internal/data"
	domainauth "github.com/applyflow/applyflow-api/internal/domain/auth"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users        core.UserRepository // Required: user repository
	Sessions     core.SessionStore   // Required: session store
	Config       config.AuthConfig   // Required: session and password configuration
	Logger       *slog.Logger        // Optional: structured logger
	TimeProvider data.TimeProvider   // Optional: injectable clock for tests
}

// AuthService handles registration, password login, and session lifecycle.
// Sessions are opaque server-side records; the client only ever holds the id.
type AuthService struct {
	users    core.UserRepository
	sessions core.SessionStore
	config   config.AuthConfig
	logger   *slog.Logger
	clock    data.TimeProvider
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("SessionStore is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.TimeProvider
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}

	return &AuthService{
		users:    opts.Users,
		sessions: opts.Sessions,
		config:   opts.Config,
		logger:   logger.With("component", "auth_service"),
		clock:    clock,
	}, nil
}

// Register creates a new account. The password is hashed with bcrypt and the
// plaintext is never stored or logged.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req, string(hash))
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies the credentials and opens a session. Unknown email and wrong
// password collapse into the same error so the endpoint does not leak which
// accounts exist.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*domainauth.Session, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WarnContext(ctx, "failed login attempt", "user_id", user.ID)
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	session := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		ExpiresAt: s.clock.Now().Add(s.config.SessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &session, nil
}

// GetSession resolves a session id to the active session. Expired or unknown
// sessions both come back unauthorized.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, apperrors.Unauthorized("session not found or expired")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.clock.Now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			s.logger.WarnContext(ctx, "delete expired session", "error", deleteErr)
		}
		return nil, apperrors.Unauthorized("session not found or expired")
	}

	return &session, nil
}

// Logout removes the session. Logging out an already-absent session is fine.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SessionCookieTTL is the max-age applied to the session cookie, aligned
// with the store-side TTL.
func (s *AuthService) SessionCookieTTL() time.Duration {
	return s.config.SessionTTL
}
