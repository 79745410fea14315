package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/applyflow/applyflow-api/internal/errors"
)

func TestApplicationStatusValid(t *testing.T) {
	valid := []ApplicationStatus{StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range valid {
		assert.True(t, s.Valid(), "status %q should be valid", s)
	}
	assert.False(t, ApplicationStatus("pending").Valid())
	assert.False(t, ApplicationStatus("").Valid())
}

func TestApplicationStatusTerminal(t *testing.T) {
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestSubmitApplicationRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SubmitApplicationRequest
		wantErr bool
		field   string
	}{
		{
			name: "valid",
			req:  SubmitApplicationRequest{UserID: "u1", JobURL: "https://jobs.example.com/apply/42"},
		},
		{
			name:    "missing user",
			req:     SubmitApplicationRequest{JobURL: "https://jobs.example.com/apply/42"},
			wantErr: true,
		},
		{
			name:    "empty url",
			req:     SubmitApplicationRequest{UserID: "u1", JobURL: "   "},
			wantErr: true,
			field:   "job_url",
		},
		{
			name:    "relative url",
			req:     SubmitApplicationRequest{UserID: "u1", JobURL: "/apply/42"},
			wantErr: true,
			field:   "job_url",
		},
		{
			name:    "unsupported scheme",
			req:     SubmitApplicationRequest{UserID: "u1", JobURL: "ftp://jobs.example.com/apply"},
			wantErr: true,
			field:   "job_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsValidation(err))
			if tt.field != "" {
				assert.Equal(t, tt.field, apperrors.GetField(err))
			}
		})
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{Name: "sam", Email: "sam@example.com", Password: "longenough"}
	assert.NoError(t, valid.Validate())

	short := RegisterRequest{Name: "sam", Email: "sam@example.com", Password: "short"}
	assert.True(t, apperrors.IsValidation(short.Validate()))

	noEmail := RegisterRequest{Name: "sam", Password: "longenough"}
	assert.True(t, apperrors.IsValidation(noEmail.Validate()))

	badEmail := RegisterRequest{Name: "sam", Email: "not-an-email", Password: "longenough"}
	assert.True(t, apperrors.IsValidation(badEmail.Validate()))
}
