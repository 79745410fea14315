package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/applyflow/applyflow-api/internal/core"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
	"github.com/applyflow/applyflow-api/internal/mocks"
)

func newTestDispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = 4
	}
	if opts.RunTimeout == 0 {
		opts.RunTimeout = time.Minute
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func processingApp(id string) *model.Application {
	return &model.Application{
		ID:     id,
		UserID: "user-1",
		JobURL: "https://jobs.example.com/1",
		Status: model.StatusProcessing,
	}
}

// runDispatcher starts d.Run in the background and returns a stop function
// that cancels it and waits for shutdown.
func runDispatcher(t *testing.T, d *Dispatcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("dispatcher did not shut down")
		}
	}
}

func TestDispatcherReserveBackpressure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDispatcher(t, Options{
		Applications: mocks.NewMockApplicationRepository(ctrl),
		Users:        mocks.NewMockUserRepository(ctrl),
		Runner:       mocks.NewMockAutomationRunner(ctrl),
		QueueSize:    2,
	})

	// Without workers draining, only QueueSize reservations fit.
	_, release1, err := d.Reserve()
	require.NoError(t, err)
	commit2, _, err := d.Reserve()
	require.NoError(t, err)

	_, _, err = d.Reserve()
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// Releasing an uncommitted reservation frees the slot.
	release1()
	commit3, _, err := d.Reserve()
	require.NoError(t, err)

	commit2("app-2")
	commit3("app-3")
	assert.Equal(t, 2, d.QueueDepth())
}

func TestDispatcherReserveCommitIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDispatcher(t, Options{
		Applications: mocks.NewMockApplicationRepository(ctrl),
		Users:        mocks.NewMockUserRepository(ctrl),
		Runner:       mocks.NewMockAutomationRunner(ctrl),
		QueueSize:    1,
	})

	commit, release, err := d.Reserve()
	require.NoError(t, err)
	commit("app-1")
	// Release after commit must not free the slot twice.
	release()
	assert.Equal(t, 1, d.QueueDepth())
}

func TestDispatcherCompletesRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	apps := mocks.NewMockApplicationRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)
	runner := mocks.NewMockAutomationRunner(ctrl)

	d := newTestDispatcher(t, Options{Applications: apps, Users: users, Runner: runner})

	completed := make(chan string, 1)

	apps.EXPECT().GetByID(gomock.Any(), "app-1").Return(processingApp("app-1"), nil)
	apps.EXPECT().MarkStarted(gomock.Any(), "app-1").Return(true, nil)
	users.EXPECT().GetByID(gomock.Any(), "user-1").Return(&model.User{
		ID:      "user-1",
		Email:   "ada@example.com",
		Profile: model.Profile{FullName: "Ada"},
	}, nil)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in core.RunInput) (*core.RunResult, error) {
			assert.Equal(t, "app-1", in.ApplicationID)
			assert.Equal(t, "ada@example.com", in.Email)
			return &core.RunResult{Raw: []byte(`{"status":"submitted"}`)}, nil
		})
	apps.EXPECT().Complete(gomock.Any(), "app-1", `{"status":"submitted"}`).DoAndReturn(
		func(_ context.Context, id, result string) (bool, error) {
			completed <- result
			return true, nil
		})

	stop := runDispatcher(t, d)
	defer stop()

	commit, _, err := d.Reserve()
	require.NoError(t, err)
	commit("app-1")

	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete")
	}
}

func TestDispatcherAppliesSummaryExpression(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	apps := mocks.NewMockApplicationRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)
	runner := mocks.NewMockAutomationRunner(ctrl)

	d := newTestDispatcher(t, Options{
		Applications:      apps,
		Users:             users,
		Runner:            runner,
		ResultSummaryExpr: "outcome.confirmation",
	})

	completed := make(chan string, 1)

	apps.EXPECT().GetByID(gomock.Any(), "app-1").Return(processingApp("app-1"), nil)
	apps.EXPECT().MarkStarted(gomock.Any(), "app-1").Return(true, nil)
	users.EXPECT().GetByID(gomock.Any(), "user-1").Return(&model.User{ID: "user-1"}, nil)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(
		&core.RunResult{Raw: []byte(`{"outcome":{"confirmation":"JOB-991","noise":true}}`)}, nil)
	apps.EXPECT().Complete(gomock.Any(), "app-1", "JOB-991").DoAndReturn(
		func(_ context.Context, id, result string) (bool, error) {
			completed <- result
			return true, nil
		})

	stop := runDispatcher(t, d)
	defer stop()

	commit, _, err := d.Reserve()
	require.NoError(t, err)
	commit("app-1")

	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete")
	}
}

func TestDispatcherFailsRunOnRunnerError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	apps := mocks.NewMockApplicationRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)
	runner := mocks.NewMockAutomationRunner(ctrl)

	d := newTestDispatcher(t, Options{Applications: apps, Users: users, Runner: runner})

	failed := make(chan string, 1)

	apps.EXPECT().GetByID(gomock.Any(), "app-1").Return(processingApp("app-1"), nil)
	apps.EXPECT().MarkStarted(gomock.Any(), "app-1").Return(true, nil)
	users.EXPECT().GetByID(gomock.Any(), "user-1").Return(&model.User{ID: "user-1"}, nil)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, errors.New("captcha wall"))
	apps.EXPECT().Fail(gomock.Any(), "app-1", "captcha wall").DoAndReturn(
		func(_ context.Context, id, msg string) (bool, error) {
			failed <- msg
			return true, nil
		})

	stop := runDispatcher(t, d)
	defer stop()

	commit, _, err := d.Reserve()
	require.NoError(t, err)
	commit("app-1")

	select {
	case msg := <-failed:
		assert.Equal(t, "captcha wall", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not fail")
	}
}

func TestDispatcherSkipsTerminalApplication(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	apps := mocks.NewMockApplicationRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)
	runner := mocks.NewMockAutomationRunner(ctrl)

	d := newTestDispatcher(t, Options{Applications: apps, Users: users, Runner: runner})

	skipped := make(chan struct{}, 1)

	// Cancelled between submission and pickup: MarkStarted loses the race
	// and the runner is never invoked.
	apps.EXPECT().GetByID(gomock.Any(), "app-1").Return(processingApp("app-1"), nil)
	apps.EXPECT().MarkStarted(gomock.Any(), "app-1").DoAndReturn(
		func(_ context.Context, id string) (bool, error) {
			skipped <- struct{}{}
			return false, nil
		})

	stop := runDispatcher(t, d)
	defer stop()

	commit, _, err := d.Reserve()
	require.NoError(t, err)
	commit("app-1")

	select {
	case <-skipped:
	case <-time.After(5 * time.Second):
		t.Fatal("application was not picked up")
	}
}

func TestDispatcherCancelSignalInterruptsRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	apps := mocks.NewMockApplicationRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)
	runner := mocks.NewMockAutomationRunner(ctrl)
	bus := mocks.NewMockCancelBus(ctrl)

	signals := make(chan string)
	bus.EXPECT().SubscribeCancel(gomock.Any()).Return((<-chan string)(signals), func() {}, nil)

	d := newTestDispatcher(t, Options{
		Applications: apps,
		Users:        users,
		Runner:       runner,
		CancelBus:    bus,
	})

	running := make(chan struct{})
	failed := make(chan struct{}, 1)

	apps.EXPECT().GetByID(gomock.Any(), "app-1").Return(processingApp("app-1"), nil)
	apps.EXPECT().MarkStarted(gomock.Any(), "app-1").Return(true, nil)
	users.EXPECT().GetByID(gomock.Any(), "user-1").Return(&model.User{ID: "user-1"}, nil)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(runCtx context.Context, _ core.RunInput) (*core.RunResult, error) {
			close(running)
			<-runCtx.Done()
			return nil, runCtx.Err()
		})
	// Row already cancelled by the API; the guarded transition is a no-op.
	apps.EXPECT().Fail(gomock.Any(), "app-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, id, msg string) (bool, error) {
			failed <- struct{}{}
			return false, nil
		})

	stop := runDispatcher(t, d)
	defer stop()

	commit, _, err := d.Reserve()
	require.NoError(t, err)
	commit("app-1")

	select {
	case <-running:
	case <-time.After(5 * time.Second):
		t.Fatal("run never started")
	}

	signals <- "app-1"

	select {
	case <-failed:
	case <-time.After(5 * time.Second):
		t.Fatal("run was not interrupted")
	}
}

func TestDispatcherRejectsBadSummaryExpression(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := New(Options{
		Applications:      mocks.NewMockApplicationRepository(ctrl),
		Users:             mocks.NewMockUserRepository(ctrl),
		Runner:            mocks.NewMockAutomationRunner(ctrl),
		ResultSummaryExpr: "not..valid..",
	})
	require.Error(t, err)
}

func TestDispatcherConcurrentReserve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := newTestDispatcher(t, Options{
		Applications: mocks.NewMockApplicationRepository(ctrl),
		Users:        mocks.NewMockUserRepository(ctrl),
		Runner:       mocks.NewMockAutomationRunner(ctrl),
		QueueSize:    8,
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if commit, _, err := d.Reserve(); err == nil {
				commit("app")
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, granted)
	assert.Equal(t, 8, d.QueueDepth())
}
