package httpx

import (
	"net/http"

	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
	"github.com/applyflow/applyflow-api/internal/service"
)

// ProfileHandlers provides HTTP handlers for profile and resume management.
type ProfileHandlers struct {
	Svc *service.ProfileService

	// MaxUploadBytes bounds the multipart form size for resume uploads.
	MaxUploadBytes int64
}

// Get handles GET /api/profile.
func (h *ProfileHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	profile, err := h.Svc.Get(r.Context(), session.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// Update handles POST /api/profile.
func (h *ProfileHandlers) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	var req model.UpdateProfileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	profile, err := h.Svc.Update(r.Context(), session.UserID, &req)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// UploadResume handles POST /api/upload_resume as a multipart form with a
// single "resume" file field.
func (h *ProfileHandlers) UploadResume(w http.ResponseWriter, r *http.Request) {
	session, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	file, header, err := r.FormFile("resume")
	if err != nil {
		WriteError(w, apperrors.ValidationField("resume", "a resume file is required"))
		return
	}
	defer func() { _ = file.Close() }()

	path, err := h.Svc.UploadResume(r.Context(), session.UserID, header.Filename, file)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"resume_path": path})
}
