package core

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/applyflow/applyflow-api/internal/domain/auth"
	"github.com/applyflow/applyflow-api/internal/domain/model"
)

// This file contains repository and collaborator interface definitions (ports).
// Service implementations depend on these interfaces, not concrete types.

// ApplicationRepository defines the interface for application data operations.
//
// Complete, Fail, and Cancel are guarded conditional transitions: they update
// the row only while status is still 'processing' and report whether the
// transition was applied. A false return with a nil error means the record
// was already terminal.
type ApplicationRepository interface {
	Create(ctx context.Context, req *model.SubmitApplicationRequest) (*model.Application, error)
	GetByID(ctx context.Context, id string) (*model.Application, error)
	MarkStarted(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id, result string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
	StatsByUser(ctx context.Context, userID string) (*model.ApplicationStats, error)
	// FailStaleProcessing force-fails processing applications older than maxAge.
	FailStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	// DeleteOldTerminal prunes terminal applications older than maxAge.
	DeleteOldTerminal(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// UserRepository defines the interface for account and profile operations.
type UserRepository interface {
	Create(ctx context.Context, req *model.RegisterRequest, passwordHash string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, profile model.Profile) error
	UpdateCredentials(ctx context.Context, userID, encrypted string) error
	UpdateResumePath(ctx context.Context, userID, path string) error
}

// ErrSessionNotFound is returned by SessionStore.Get for unknown or expired
// session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists server-side sessions keyed by opaque session id.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RunInput carries everything the automation runner needs for one attempt.
type RunInput struct {
	ApplicationID string
	JobURL        string
	Profile       model.Profile
	Email         string
	// Credentials is the decrypted site login material. Never log it.
	Credentials map[string]string
}

// RunResult is the opaque outcome of an automation run.
type RunResult struct {
	// Raw is the runner's result payload, JSON when the runner supplies it.
	Raw []byte
}

// AutomationRunner performs the actual browser-driven application. It is
// opaque to this core: a single blocking call that either returns a result
// or an error. Implementations should honor ctx cancellation but are not
// required to stop promptly.
type AutomationRunner interface {
	Run(ctx context.Context, input RunInput) (*RunResult, error)
}

// CancelBus broadcasts cooperative cancellation signals for in-flight runs.
// Delivery is best-effort: a signal may arrive after the run finished, or
// not at all, and the runner may ignore it. The durable store remains the
// authority on application state.
type CancelBus interface {
	PublishCancel(ctx context.Context, applicationID string) error
	// SubscribeCancel returns a channel of cancelled application ids and an
	// unsubscribe function.
	SubscribeCancel(ctx context.Context) (<-chan string, func(), error)
}
