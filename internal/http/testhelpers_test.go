package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/applyflow/applyflow-api/config"
	domainauth "github.com/applyflow/applyflow-api/internal/domain/auth"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
	"github.com/applyflow/applyflow-api/internal/mocks"
	"github.com/applyflow/applyflow-api/internal/service"
)

const (
	testUserID    = "f2d7a1c0-0000-4000-8000-0000000000aa"
	testAppID     = "f2d7a1c0-0000-4000-8000-000000000001"
	testSessionID = "test-session-id"
)

// testEnv bundles the router plus the repository mocks behind it so tests
// drive real services through the real routes.
type testEnv struct {
	Router       http.Handler
	Applications *mocks.MockApplicationRepository
	Users        *mocks.MockUserRepository
	Sessions     *mocks.MockSessionStore
	Queue        *fakeQueue
	AuthConfig   config.AuthConfig
	UploadDir    string
}

// fakeQueue is an always-available RunQueue unless full is set.
type fakeQueue struct {
	full      bool
	committed []string
}

func (q *fakeQueue) Reserve() (func(string), func(), error) {
	if q.full {
		return nil, nil, apperrors.Conflict("application queue is full, try again later")
	}
	return func(id string) { q.committed = append(q.committed, id) }, func() {}, nil
}

func (q *fakeQueue) QueueDepth() int { return len(q.committed) }

func newRouterForTest(
	t *testing.T,
	apps *mocks.MockApplicationRepository,
	users *mocks.MockUserRepository,
	sessions *mocks.MockSessionStore,
	queue *fakeQueue,
) *testEnv {
	t.Helper()

	authCfg := config.AuthConfig{
		SessionTTL: time.Hour,
		CookieName: "session_id",
		BcryptCost: bcrypt.MinCost,
	}
	httpCfg := config.HTTPConfig{
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
	}

	authSvc, err := service.NewAuthService(service.AuthServiceOptions{
		Users:    users,
		Sessions: sessions,
		Config:   authCfg,
	})
	require.NoError(t, err)

	profileSvc, err := service.NewProfileService(service.ProfileServiceOptions{
		Users:          users,
		UploadDir:      httpCfg.UploadDir,
		MaxUploadBytes: httpCfg.MaxUploadBytes,
	})
	require.NoError(t, err)

	appSvc, err := service.NewApplicationService(service.ApplicationServiceOptions{
		Repo:  apps,
		Queue: queue,
	})
	require.NoError(t, err)

	router := NewRouter(RouterServices{
		Auth:         authSvc,
		Profiles:     profileSvc,
		Applications: appSvc,
		AuthConfig:   authCfg,
		HTTPConfig:   httpCfg,
	})

	return &testEnv{
		Router:       router,
		Applications: apps,
		Users:        users,
		Sessions:     sessions,
		Queue:        queue,
		AuthConfig:   authCfg,
		UploadDir:    httpCfg.UploadDir,
	}
}

// authedRequest attaches a session cookie and primes the session store mock
// to resolve it.
func (e *testEnv) authedRequest(r *http.Request, userID string) *http.Request {
	e.Sessions.EXPECT().Get(gomock.Any(), testSessionID).Return(domainauth.Session{
		ID:        testSessionID,
		UserID:    userID,
		Username:  "ada",
		Email:     "ada@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil).AnyTimes()
	r.AddCookie(&http.Cookie{Name: e.AuthConfig.CookieName, Value: testSessionID})
	return r
}

func (e *testEnv) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, r)
	return rec
}

func timeInPast() time.Time {
	return time.Now().Add(-time.Minute)
}
