package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/coursereg/internal/app/auth"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
	"github.com/yigit/coursereg/internal/pkg/validation"
)

// AuthService handles login, registration and the caller's own credentials
type AuthService struct {
	students       repositories.StudentRepository
	admins         repositories.AdminRepository
	studentService StudentService
	jwtService     *auth.JWTService
	hasher         *auth.PasswordHasher
	guard          appauth.Guard
	logger         zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	students repositories.StudentRepository,
	admins repositories.AdminRepository,
	studentService StudentService,
	jwtService *auth.JWTService,
	hasher *auth.PasswordHasher,
	guard appauth.Guard,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		students:       students,
		admins:         admins,
		studentService: studentService,
		jwtService:     jwtService,
		hasher:         hasher,
		guard:          guard,
		logger:         logger,
	}
}

func (s *AuthService) issue(userID string, role models.RoleType, user interface{}) (*dto.AuthResponse, error) {
	token, _, err := s.jwtService.IssueToken(userID, role, 0)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(s.jwtService.AccessTokenTTL().Seconds()),
		},
		Role: string(role),
		User: user,
	}, nil
}

// Login authenticates a student by email and password
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := validation.NormalizeEmail(req.Email)
	student, err := s.students.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding student: %w", err)
	}

	if !s.hasher.VerifyPassword(student.Password, req.Password) {
		s.logger.Warn().Str("studentId", student.ID).Msg("Failed student login")
		return nil, apperrors.ErrInvalidCredentials
	}

	s.logger.Info().Str("studentId", student.ID).Msg("Student logged in")
	return s.issue(student.ID, models.RoleStudent, dto.FromStudent(student))
}

// AdminLogin authenticates an admin by username and password
func (s *AuthService) AdminLogin(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AuthResponse, error) {
	admin, err := s.admins.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding admin: %w", err)
	}

	if !s.hasher.VerifyPassword(admin.Password, req.Password) {
		s.logger.Warn().Str("adminId", admin.ID).Msg("Failed admin login")
		return nil, apperrors.ErrInvalidCredentials
	}

	s.logger.Info().Str("adminId", admin.ID).Msg("Admin logged in")
	return s.issue(admin.ID, models.RoleAdmin, dto.FromAdmin(admin))
}

// Register creates a student account and logs it in
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterStudentRequest) (*dto.AuthResponse, error) {
	student, err := s.studentService.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(student.ID, models.RoleStudent, dto.FromStudent(student))
}

// Me returns the account behind the claims
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (*dto.MeResponse, error) {
	if claims == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	switch claims.Role {
	case models.RoleAdmin:
		admin, err := s.admins.FindByID(ctx, claims.UserID)
		if err != nil {
			return nil, s.staleAccount(err)
		}
		return &dto.MeResponse{Role: string(claims.Role), User: dto.FromAdmin(admin)}, nil
	default:
		student, err := s.students.FindByID(ctx, claims.UserID)
		if err != nil {
			return nil, s.staleAccount(err)
		}
		return &dto.MeResponse{Role: string(claims.Role), User: dto.FromStudent(student)}, nil
	}
}

// staleAccount maps a missing account behind a valid token to Unauthenticated
func (s *AuthService) staleAccount(err error) error {
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return fmt.Errorf("%w: account no longer exists", apperrors.ErrUnauthenticated)
	}
	return err
}

// ChangePassword replaces the caller's own password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, claims *auth.Claims, req *dto.ChangePasswordRequest) error {
	var ownerID string
	if claims != nil {
		ownerID = claims.UserID
	}
	if err := s.guard.Authorize(claims, appauth.ActionChangePassword, ownerID); err != nil {
		return err
	}
	if !validation.IsStrongPassword(req.NewPassword) {
		return apperrors.NewValidationError("password must be at least 8 characters and contain a letter and a digit")
	}

	var currentHash string
	switch claims.Role {
	case models.RoleAdmin:
		admin, err := s.admins.FindByID(ctx, claims.UserID)
		if err != nil {
			return s.staleAccount(err)
		}
		currentHash = admin.Password
	default:
		student, err := s.students.FindByID(ctx, claims.UserID)
		if err != nil {
			return s.staleAccount(err)
		}
		currentHash = student.Password
	}

	if !s.hasher.VerifyPassword(currentHash, req.CurrentPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := s.hasher.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if claims.Role == models.RoleAdmin {
		err = s.admins.UpdatePassword(ctx, claims.UserID, hash)
	} else {
		err = s.students.UpdatePassword(ctx, claims.UserID, hash)
	}
	if err != nil {
		return err
	}

	s.logger.Info().Str("userId", claims.UserID).Str("role", string(claims.Role)).Msg("Password changed")
	return nil
}
