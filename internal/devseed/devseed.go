// Package devseed seeds a local development database with a demo account so
// the API is usable immediately after `SERVICES=http,dispatcher DEV=true` startup.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/applyflow/applyflow-api/internal/data"
	"github.com/applyflow/applyflow-api/internal/domain/model"
	apperrors "github.com/applyflow/applyflow-api/internal/errors"
)

const (
	demoEmail    = "demo@applyflow.local"
	demoPassword = "demo-password"
)

// Seed creates the demo user if it does not exist. It is idempotent and only
// intended for development databases.
func Seed(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	users := data.NewUserRepo(db)

	if _, err := users.GetByEmail(ctx, demoEmail); err == nil {
		logger.InfoContext(ctx, "dev seed: demo user already present", "email", demoEmail)
		return nil
	} else if !apperrors.IsNotFound(err) {
		return fmt.Errorf("check demo user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	user, err := users.Create(ctx, &model.RegisterRequest{
		Name:     "demo",
		Email:    demoEmail,
		Password: demoPassword,
	}, string(hash))
	if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}

	profile := model.Profile{
		FullName:       "Demo Applicant",
		Address:        "1 Demo Street, Exampleville",
		PhoneNumber:    "+1-555-0100",
		Education:      "B.Sc. Computer Science",
		WorkExperience: "3 years backend development",
		Skills:         "Go, PostgreSQL, Redis",
		LinkedIn:       "https://www.linkedin.com/in/demo-applicant",
		GitHub:         "https://github.com/demo-applicant",
	}
	if err := users.UpdateProfile(ctx, user.ID, profile); err != nil {
		return fmt.Errorf("seed demo profile: %w", err)
	}

	logger.InfoContext(ctx, "dev seed: demo user created",
		"email", demoEmail,
		"user_id", user.ID,
	)
	return nil
}
