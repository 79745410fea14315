package model

import (
	"strings"
	"time"

	apperrors "github.com/applyflow/applyflow-api/internal/errors"
)

// User represents a registered account together with the job-application
// profile the automation runner fills forms from.
//
// Credentials holds the user's job-site login material and is stored
// encrypted at rest; it is decrypted only when handed to the automation
// runner and is never echoed back through the API.
type User struct {
	ID           string    `json:"id"            db:"id"`
	Username     string    `json:"username"      db:"username"`
	Email        string    `json:"email"         db:"email"`
	PasswordHash string    `json:"-"             db:"password_hash"`
	Profile      Profile   `json:"profile"`
	Credentials  string    `json:"-"             db:"credentials"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"    db:"updated_at"`
}

// Profile carries the form-fill data for an application run.
type Profile struct {
	FullName       string `json:"full_name"       db:"full_name"`
	Address        string `json:"address"         db:"address"`
	PhoneNumber    string `json:"phone_number"    db:"phone_number"`
	Gender         string `json:"gender"          db:"gender"`
	Education      string `json:"education"       db:"education"`
	WorkExperience string `json:"work_experience" db:"work_experience"`
	Skills         string `json:"skills"          db:"skills"`
	LinkedIn       string `json:"linkedin"        db:"linkedin"`
	Portfolio      string `json:"portfolio"       db:"portfolio"`
	GitHub         string `json:"github"          db:"github"`
	Projects       string `json:"projects"        db:"projects"`
	Disabilities   string `json:"disabilities"    db:"disabilities"`
	ResumePath     string `json:"resume_path"     db:"resume_path"`
}

// RegisterRequest represents a request to create a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

const minPasswordLength = 8

// Validate validates the RegisterRequest fields.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.ValidationField("name", "name is required")
	}
	email := strings.TrimSpace(r.Email)
	if email == "" || !strings.Contains(email, "@") {
		return apperrors.ValidationField("email", "a valid email is required")
	}
	if len(r.Password) < minPasswordLength {
		return apperrors.ValidationField("password", "password must be at least 8 characters")
	}
	return nil
}

// LoginRequest represents a login attempt.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the LoginRequest fields.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if r.Password == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	return nil
}

// UpdateProfileRequest carries a full profile update plus optional site
// credentials. Credentials are write-only through the API.
type UpdateProfileRequest struct {
	Profile     Profile           `json:"profile"`
	Credentials map[string]string `json:"credentials,omitempty"`
}

// ProfileResponse is the read model for GET /api/profile. Credential values
// are masked; only the key names are disclosed.
type ProfileResponse struct {
	UserID         string   `json:"user_id"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	Profile        Profile  `json:"profile"`
	CredentialKeys []string `json:"credential_keys"`
}
