package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/applyflow/applyflow-api/internal/core"
	"github.com/applyflow/applyflow-api/internal/data/cryptoutil"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
)

// ProfileServiceOptions groups dependencies for ProfileService.
type ProfileServiceOptions struct {
	Users          core.UserRepository // Required: user repository
	Encryptor      cryptoutil.Encryptor
	UploadDir      string // Required: directory for stored resumes
	MaxUploadBytes int64  // Required: per-file resume size cap
	Logger         *slog.Logger
}

// ProfileService manages the applicant profile, encrypted site credentials,
// and resume storage.
type ProfileService struct {
	users          core.UserRepository
	encryptor      cryptoutil.Encryptor
	uploadDir      string
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewProfileService constructs a new ProfileService.
func NewProfileService(opts ProfileServiceOptions) (*ProfileService, error) {
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.UploadDir == "" {
		return nil, errors.New("upload directory is required")
	}
	if opts.MaxUploadBytes <= 0 {
		return nil, errors.New("max upload bytes must be positive")
	}

	encryptor := opts.Encryptor
	if encryptor == nil {
		encryptor = cryptoutil.NoopEncryptor{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ProfileService{
		users:          opts.Users,
		encryptor:      encryptor,
		uploadDir:      opts.UploadDir,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         logger.With("component", "profile_service"),
	}, nil
}

// Get returns the profile read model. Credential values never leave the
// service; only the key names are disclosed so the UI can show what is set.
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	keys, err := s.credentialKeys(user.Credentials)
	if err != nil {
		// Undecryptable credentials should not block reading the profile.
		s.logger.WarnContext(ctx, "list credential keys", "user_id", userID, "error", err)
		keys = nil
	}

	return &model.ProfileResponse{
		UserID:         user.ID,
		Username:       user.Username,
		Email:          user.Email,
		Profile:        user.Profile,
		CredentialKeys: keys,
	}, nil
}

// Update replaces the profile and, when credentials are supplied, re-encrypts
// and replaces the stored credential map as a whole.
func (s *ProfileService) Update(
	ctx context.Context,
	userID string,
	req *model.UpdateProfileRequest,
) (*model.ProfileResponse, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}

	// The stored resume path is managed by UploadResume, not the client.
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := req.Profile
	profile.ResumePath = current.Profile.ResumePath

	if err := s.users.UpdateProfile(ctx, userID, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if req.Credentials != nil {
		if err := s.storeCredentials(ctx, userID, req.Credentials); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "credentials updated",
			"user_id", userID,
			"credential_count", len(req.Credentials),
		)
	}

	return s.Get(ctx, userID)
}

// UploadResume stores a PDF resume under the upload directory and records
// its path on the profile. The filename on disk is derived from the user id,
// never from client input.
func (s *ProfileService) UploadResume(
	ctx context.Context,
	userID, filename string,
	file io.Reader,
) (string, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return "", apperrors.ValidationField("resume", "resume must be a PDF file")
	}

	// Ensure the user exists before writing anything to disk.
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	path := filepath.Join(s.uploadDir, userID+".pdf")
	if err := s.writeResume(path, file); err != nil {
		return "", err
	}

	if err := s.users.UpdateResumePath(ctx, userID, path); err != nil {
		return "", fmt.Errorf("record resume path: %w", err)
	}

	s.logger.InfoContext(ctx, "resume uploaded", "user_id", userID, "path", path)
	return path, nil
}

func (s *ProfileService) writeResume(path string, file io.Reader) error {
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 - path is server-derived
	if err != nil {
		return fmt.Errorf("create resume file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	written, err := io.Copy(dst, io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		return fmt.Errorf("write resume file: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(path)
		return apperrors.ValidationField("resume",
			fmt.Sprintf("resume exceeds the %d byte limit", s.maxUploadBytes))
	}
	if written == 0 {
		_ = os.Remove(path)
		return apperrors.ValidationField("resume", "resume file is empty")
	}
	return nil
}

func (s *ProfileService) storeCredentials(ctx context.Context, userID string, creds map[string]string) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credential map: %w", err)
	}
	encrypted, err := s.encryptor.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}
	if err := s.users.UpdateCredentials(ctx, userID, encrypted); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

func (s *ProfileService) credentialKeys(encrypted string) ([]string, error) {
	if encrypted == "" {
		return nil, nil
	}
	plain, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		return nil, err
	}
	var creds map[string]string
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("decode credential map: %w", err)
	}
	keys := make([]string, 0, len(creds))
	for k := range creds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
