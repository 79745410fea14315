package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/applyflow/applyflow-api/config"
	"github.com/applyflow/applyflow-api/internal/adapters/agent"
	"github.com/applyflow/applyflow-api/internal/adapters/dispatcher"
	reaperadapter "github.com/applyflow/applyflow-api/internal/adapters/reaper"
	redisadapter "github.com/applyflow/applyflow-api/internal/adapters/redis"
	"github.com/applyflow/applyflow-api/internal/data"
	httpx "github.com/applyflow/applyflow-api/internal/http"
	"github.com/applyflow/applyflow-api/internal/observability/statsd"
	"github.com/applyflow/applyflow-api/internal/service"
)

// ServiceDeps carries the shared infrastructure every service builds on.
type ServiceDeps struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// ServiceContainer holds the wired services and background runners.
type ServiceContainer struct {
	Auth         *service.AuthService
	Profiles     *service.ProfileService
	Applications *service.ApplicationService
	Dispatcher   *dispatcher.Dispatcher
	Reaper       *reaperadapter.Runner
	Metrics      statsd.Sink
}

// buildMetricsSink creates the StatsD sink when metrics are enabled. A nil
// sink is valid everywhere and simply drops metrics.
func buildMetricsSink(cfg config.ObservabilityConfig, logger *slog.Logger) statsd.Sink {
	if !cfg.Metrics.IsEnabled() {
		return nil
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  "applyflow",
		Logger:  logger,
	})
	if err != nil {
		logger.Warn("statsd client unavailable, metrics disabled", "error", err)
		return nil
	}
	return client
}

// NewServices wires repositories, adapters, and services from shared deps.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := buildMetricsSink(cfg.Observability, logger)
	encryptor := CreateEncryptor(cfg.SecretsEncryptionKey, logger)

	appRepo := data.NewApplicationRepo(deps.DB, data.RepoConfig{Logger: logger})
	userRepo := data.NewUserRepo(deps.DB)
	sessionStore := redisadapter.NewSessionStore(deps.Redis)
	cancelBus := redisadapter.NewCancelBus(deps.Redis, logger)

	agentRunner, err := agent.NewRunner(agent.RunnerOptions{
		BaseURL: cfg.Runner.AgentURL,
		HTTPClient: &http.Client{
			Timeout: cfg.Runner.RequestTimeout,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create agent runner: %w", err)
	}

	disp, err := dispatcher.New(dispatcher.Options{
		Applications:      appRepo,
		Users:             userRepo,
		Runner:            agentRunner,
		CancelBus:         cancelBus,
		Encryptor:         encryptor,
		Workers:           cfg.Dispatcher.Workers,
		QueueSize:         cfg.Dispatcher.QueueSize,
		RunTimeout:        cfg.Dispatcher.RunTimeout,
		ResultSummaryExpr: cfg.Dispatcher.ResultSummaryExpr,
		Logger:            logger,
		Metrics:           metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	authSvc, err := service.NewAuthService(service.AuthServiceOptions{
		Users:    userRepo,
		Sessions: sessionStore,
		Config:   cfg.Auth,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}

	profileSvc, err := service.NewProfileService(service.ProfileServiceOptions{
		Users:          userRepo,
		Encryptor:      encryptor,
		UploadDir:      cfg.HTTP.UploadDir,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile service: %w", err)
	}

	appSvc, err := service.NewApplicationService(service.ApplicationServiceOptions{
		Repo:      appRepo,
		Queue:     disp,
		CancelBus: cancelBus,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create application service: %w", err)
	}

	var reaperRunner *reaperadapter.Runner
	if cfg.IsReaperEnabled() {
		reaperRunner, err = reaperadapter.NewRunner(reaperadapter.RunnerOptions{
			DB:      deps.DB,
			Config:  cfg.Reaper,
			Logger:  logger,
			Repo:    appRepo,
			Metrics: metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("create reaper runner: %w", err)
		}
	}

	return &ServiceContainer{
		Auth:         authSvc,
		Profiles:     profileSvc,
		Applications: appSvc,
		Dispatcher:   disp,
		Reaper:       reaperRunner,
		Metrics:      metrics,
	}, nil
}

// RunServices starts every enabled service and blocks until the context is
// cancelled or one of them fails. The HTTP server is drained gracefully on
// shutdown; the dispatcher and reaper stop with the group context.
func RunServices(ctx context.Context, deps *ServiceDeps, services *ServiceContainer) error {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.IsHTTPServerEnabled() {
		server := buildHTTPServer(cfg, services, logger)
		group.Go(func() error {
			logger.Info("starting HTTP server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			logger.Info("shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	// Submissions reserve capacity in the in-process queue, so the worker
	// pool always runs alongside the API.
	if cfg.IsDispatcherEnabled() || cfg.IsHTTPServerEnabled() {
		group.Go(func() error {
			if err := services.Dispatcher.Run(groupCtx); err != nil && groupCtx.Err() == nil {
				return fmt.Errorf("dispatcher: %w", err)
			}
			return nil
		})
	}

	if cfg.IsReaperEnabled() && services.Reaper != nil {
		group.Go(func() error {
			if err := services.Reaper.Run(groupCtx); err != nil && groupCtx.Err() == nil {
				return fmt.Errorf("reaper: %w", err)
			}
			return nil
		})
	}

	return group.Wait()
}

func buildHTTPServer(cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) *http.Server {
	router := httpx.NewRouter(httpx.RouterServices{
		Auth:         services.Auth,
		Profiles:     services.Profiles,
		Applications: services.Applications,
		AuthConfig:   cfg.Auth,
		HTTPConfig:   cfg.HTTP,
		Logger:       logger,
	})

	handler := httpx.Logging(logger)(router)
	handler = httpx.Recover(logger)(handler)

	addr := cfg.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
