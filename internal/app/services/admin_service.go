package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/coursereg/internal/app/auth"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
	"github.com/yigit/coursereg/internal/pkg/helpers"
	"github.com/yigit/coursereg/internal/pkg/validation"
)

// AdminService defines the interface for admin account operations
type AdminService interface {
	Create(ctx context.Context, actor *auth.Claims, req *dto.CreateAdminRequest) (*models.Admin, error)
	GetByID(ctx context.Context, actor *auth.Claims, id string) (*models.Admin, error)
	List(ctx context.Context, actor *auth.Claims, page, size int) ([]*models.Admin, int64, error)
	Update(ctx context.Context, actor *auth.Claims, id string, patch models.AdminPatch) (*models.Admin, error)
	// Delete refuses to remove the last admin with apperrors.ErrLastAdmin.
	Delete(ctx context.Context, actor *auth.Claims, id string) error
}

type adminServiceImpl struct {
	admins repositories.AdminRepository
	guard  appauth.Guard
	hasher *auth.PasswordHasher
	logger zerolog.Logger
}

// NewAdminService creates a new admin service instance
func NewAdminService(admins repositories.AdminRepository, guard appauth.Guard, hasher *auth.PasswordHasher, logger zerolog.Logger) AdminService {
	return &adminServiceImpl{
		admins: admins,
		guard:  guard,
		hasher: hasher,
		logger: logger,
	}
}

func validateAdminFields(username, email, firstName, lastName *string) error {
	if username != nil && !validation.IsValidUsername(*username) {
		return apperrors.NewValidationError("username must be 3 to 50 letters, digits, dots, dashes or underscores")
	}
	if email != nil && !validation.IsValidEmail(*email) {
		return apperrors.NewValidationError("invalid email format")
	}
	if firstName != nil && !validation.IsValidName(*firstName) {
		return apperrors.NewValidationError("first name cannot be empty")
	}
	if lastName != nil && !validation.IsValidName(*lastName) {
		return apperrors.NewValidationError("last name cannot be empty")
	}
	return nil
}

func (s *adminServiceImpl) Create(ctx context.Context, actor *auth.Claims, req *dto.CreateAdminRequest) (*models.Admin, error) {
	if err := s.guard.Authorize(actor, appauth.ActionManageAdmin, ""); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.NewValidationError("request body is required")
	}

	username := strings.TrimSpace(req.Username)
	email := validation.NormalizeEmail(req.Email)
	if err := validateAdminFields(&username, &email, &req.FirstName, &req.LastName); err != nil {
		return nil, err
	}
	if !validation.IsStrongPassword(req.Password) {
		return nil, apperrors.NewValidationError("password must be at least 8 characters and contain a letter and a digit")
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := time.Now().UTC()
	admin := &models.Admin{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.Info().Str("adminId", admin.ID).Str("username", admin.Username).Str("actor", actor.UserID).Msg("Admin created")
	return admin, nil
}

func (s *adminServiceImpl) GetByID(ctx context.Context, actor *auth.Claims, id string) (*models.Admin, error) {
	if err := s.guard.Authorize(actor, appauth.ActionManageAdmin, ""); err != nil {
		return nil, err
	}
	if !validation.IsValidID(id) {
		return nil, apperrors.NewValidationError("invalid admin id")
	}
	return s.admins.FindByID(ctx, id)
}

func (s *adminServiceImpl) List(ctx context.Context, actor *auth.Claims, page, size int) ([]*models.Admin, int64, error) {
	if err := s.guard.Authorize(actor, appauth.ActionManageAdmin, ""); err != nil {
		return nil, 0, err
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	return s.admins.Find(ctx, offset, limit)
}

func (s *adminServiceImpl) Update(ctx context.Context, actor *auth.Claims, id string, patch models.AdminPatch) (*models.Admin, error) {
	if err := s.guard.Authorize(actor, appauth.ActionManageAdmin, ""); err != nil {
		return nil, err
	}
	if !validation.IsValidID(id) {
		return nil, apperrors.NewValidationError("invalid admin id")
	}
	if patch.Empty() {
		return nil, apperrors.NewValidationError("no fields to update")
	}

	if patch.Email != nil {
		email := validation.NormalizeEmail(*patch.Email)
		patch.Email = &email
	}
	trimPtr(patch.Username, patch.FirstName, patch.LastName)
	if err := validateAdminFields(patch.Username, patch.Email, patch.FirstName, patch.LastName); err != nil {
		return nil, err
	}

	admin, err := s.admins.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("adminId", id).Str("actor", actor.UserID).Msg("Admin updated")
	return admin, nil
}

func (s *adminServiceImpl) Delete(ctx context.Context, actor *auth.Claims, id string) error {
	if err := s.guard.Authorize(actor, appauth.ActionManageAdmin, ""); err != nil {
		return err
	}
	if !validation.IsValidID(id) {
		return apperrors.NewValidationError("invalid admin id")
	}

	if err := s.admins.DeleteIfNotLast(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("adminId", id).Str("actor", actor.UserID).Bool("self", id == actor.UserID).Msg("Admin deleted")
	return nil
}
