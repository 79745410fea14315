package httpx

import (
	"net/http"

	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
	"github.com/applyflow/applyflow-api/internal/service"
)

// ApplicationHandlers provides HTTP handlers for the application lifecycle.
// All handlers assume RequireAuth has placed a session in the context.
type ApplicationHandlers struct {
	Svc *service.ApplicationService
}

// Submit handles POST /api/apply. Acceptance is asynchronous: 202 means a
// processing record exists and a run has been queued, not that the
// application succeeded.
func (h *ApplicationHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	var req model.SubmitApplicationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.UserID = session.UserID

	app, err := h.Svc.Submit(r.Context(), &req)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"application_id": app.ID,
		"status":         string(app.Status),
	})
}

// Status handles GET /api/apply/status/{id}.
func (h *ApplicationHandlers) Status(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	status, err := h.Svc.GetStatus(r.Context(), session.UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// cancelRequest is the body for POST /api/apply/cancel.
type cancelRequest struct {
	ApplicationID string `json:"application_id"`
}

// Cancel handles POST /api/apply/cancel.
func (h *ApplicationHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	var req cancelRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	app, err := h.Svc.Cancel(r.Context(), session.UserID, req.ApplicationID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"application_id": app.ID,
		"status":         string(app.Status),
	})
}

// Stats handles GET /api/apply/stats.
func (h *ApplicationHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	stats, err := h.Svc.Stats(r.Context(), session.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
