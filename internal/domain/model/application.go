// Package model defines the core data types for the applyflow job-application system.
package model

import (
	"net/url"
	"strings"
	"time"

	apperrors "github.com/applyflow/applyflow-api/internal/errors"
)

// ApplicationStatus represents the lifecycle state of a job application.
type ApplicationStatus string

const (
	// StatusProcessing indicates the automation run has been accepted and is
	// queued or executing.
	StatusProcessing ApplicationStatus = "processing"
	// StatusCompleted indicates the automation run finished successfully.
	StatusCompleted ApplicationStatus = "completed"
	// StatusFailed indicates the automation run finished with an error.
	StatusFailed ApplicationStatus = "failed"
	// StatusCancelled indicates the owner cancelled the application before it
	// reached another terminal state.
	StatusCancelled ApplicationStatus = "cancelled"
)

// Valid returns true if the ApplicationStatus is a known state.
func (s ApplicationStatus) Valid() bool {
	return s == StatusProcessing || s == StatusCompleted ||
		s == StatusFailed || s == StatusCancelled
}

// Terminal reports whether the status permits no further transitions.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Application represents one requested automation run against a job posting,
// tracked end-to-end. The only writer after creation is a guarded conditional
// transition out of StatusProcessing.
type Application struct {
	ID         string            `json:"id"                    db:"id"`
	UserID     string            `json:"user_id"               db:"user_id"`
	JobURL     string            `json:"job_url"               db:"job_url"`
	Status     ApplicationStatus `json:"status"                db:"status"`
	Result     *string           `json:"result,omitempty"      db:"result"`
	Error      *string           `json:"error,omitempty"       db:"error"`
	StartedAt  *time.Time        `json:"started_at,omitempty"  db:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt  time.Time         `json:"created_at"            db:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"            db:"updated_at"`
}

// SubmitApplicationRequest represents a request to start a new application run.
type SubmitApplicationRequest struct {
	UserID string `json:"-"`
	JobURL string `json:"job_url"`
}

// Validate validates the SubmitApplicationRequest fields.
func (r *SubmitApplicationRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return apperrors.Validation("user id is required")
	}
	jobURL := strings.TrimSpace(r.JobURL)
	if jobURL == "" {
		return apperrors.ValidationField("job_url", "job URL is required")
	}
	u, err := url.Parse(jobURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.ValidationField("job_url", "job URL must be an absolute http(s) URL")
	}
	return nil
}

// ApplicationStatusResponse is the polling payload for a single application.
type ApplicationStatusResponse struct {
	Status ApplicationStatus `json:"status"`
	Error  *string           `json:"error,omitempty"`
}

// StatusResponse projects the application onto its polling payload.
func (a *Application) StatusResponse() *ApplicationStatusResponse {
	return &ApplicationStatusResponse{Status: a.Status, Error: a.Error}
}

// ApplicationStats represents per-status counts of a user's applications.
type ApplicationStats struct {
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}
