package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
	"github.com/yigit/coursereg/internal/pkg/validation"
)

// AdminAccount describes the first admin created on an empty store
type AdminAccount struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// EnsureBootstrapAdmin creates account when no admin exists yet, so that the admin API is
// reachable on a fresh install. It returns true when an admin was created.
func EnsureBootstrapAdmin(ctx context.Context, admins repositories.AdminRepository, hasher *auth.PasswordHasher, account AdminAccount, lgr zerolog.Logger) (bool, error) {
	count, err := admins.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if strings.TrimSpace(account.Username) == "" || account.Password == "" {
		lgr.Warn().Msg("No admin exists and no bootstrap admin is configured; admin endpoints are unreachable")
		return false, nil
	}
	if !validation.IsStrongPassword(account.Password) {
		return false, apperrors.NewValidationError("bootstrap admin password must be at least 8 characters and contain a letter and a digit")
	}

	hash, err := hasher.HashPassword(account.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}

	firstName, lastName := account.FirstName, account.LastName
	if firstName == "" {
		firstName = "System"
	}
	if lastName == "" {
		lastName = "Administrator"
	}

	now := time.Now().UTC()
	admin := &models.Admin{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(account.Username),
		Email:     validation.NormalizeEmail(account.Email),
		Password:  hash,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := admins.Create(ctx, admin); err != nil {
		// another instance won the race
		if errors.Is(err, apperrors.ErrResourceAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	lgr.Info().Str("adminId", admin.ID).Str("username", admin.Username).Msg("Bootstrap admin created")
	return true, nil
}
