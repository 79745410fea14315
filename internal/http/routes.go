package httpx

import (
	"log/slog"
	"net/http"

	"github.com/applyflow/applyflow-api/config"
	"github.com/applyflow/applyflow-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         *service.AuthService
	Profiles     *service.ProfileService
	Applications *service.ApplicationService

	AuthConfig config.AuthConfig
	HTTPConfig config.HTTPConfig
	Logger     *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{Svc: services.Auth, Config: services.AuthConfig}
	profileHandlers := &ProfileHandlers{
		Svc:            services.Profiles,
		MaxUploadBytes: services.HTTPConfig.MaxUploadBytes,
	}
	applicationHandlers := &ApplicationHandlers{Svc: services.Applications}

	requireAuth := RequireAuth(services.Auth, services.AuthConfig.CookieName)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	mux.HandleFunc("POST /api/register", authHandlers.Register)
	mux.HandleFunc("POST /api/login", authHandlers.Login)
	mux.HandleFunc("POST /api/logout", authHandlers.Logout)

	mux.Handle("GET /api/profile", requireAuth(http.HandlerFunc(profileHandlers.Get)))
	mux.Handle("POST /api/profile", requireAuth(http.HandlerFunc(profileHandlers.Update)))
	mux.Handle("POST /api/upload_resume", requireAuth(http.HandlerFunc(profileHandlers.UploadResume)))

	mux.Handle("POST /api/apply", requireAuth(http.HandlerFunc(applicationHandlers.Submit)))
	mux.Handle("GET /api/apply/status/{id}", requireAuth(http.HandlerFunc(applicationHandlers.Status)))
	mux.Handle("POST /api/apply/cancel", requireAuth(http.HandlerFunc(applicationHandlers.Cancel)))
	mux.Handle("GET /api/apply/stats", requireAuth(http.HandlerFunc(applicationHandlers.Stats)))

	return mux
}
