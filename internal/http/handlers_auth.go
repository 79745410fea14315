package httpx

import (
	"net/http"
	"time"

	"github.com/applyflow/applyflow-api/config"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
	"github.com/applyflow/applyflow-api/internal/service"
)

// AuthHandlers provides HTTP handlers for registration and session management.
type AuthHandlers struct {
	Svc    *service.AuthService
	Config config.AuthConfig
}

// Register handles POST /api/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.Svc.Register(r.Context(), &req)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// Login handles POST /api/login. On success the opaque session id is set as
// an HttpOnly cookie; the body confirms who logged in.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	session, err := h.Svc.Login(r.Context(), &req)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			WriteJSON(w, http.StatusUnauthorized, errorBody{
				Error:   string(apperrors.ErrCodeUnauthorized),
				Message: "invalid email or password",
			})
			return
		}
		WriteError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, session.ExpiresAt)
	WriteJSON(w, http.StatusOK, map[string]string{
		"user_id":  session.UserID,
		"username": session.Username,
		"email":    session.Email,
	})
}

// Logout handles POST /api/logout. It is idempotent: logging out without a
// session succeeds.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.Config.CookieName); err == nil && cookie.Value != "" {
		if err := h.Svc.Logout(r.Context(), cookie.Value); err != nil {
			WriteError(w, err)
			return
		}
	}

	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Config.CookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.Config.CookieDomain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.Config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
