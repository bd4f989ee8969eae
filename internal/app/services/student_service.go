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

// StudentService defines the interface for student operations
type StudentService interface {
	// Register creates a student account without a caller; used by public registration.
	Register(ctx context.Context, req *dto.RegisterStudentRequest) (*models.Student, error)
	Create(ctx context.Context, actor *auth.Claims, req *dto.RegisterStudentRequest) (*models.Student, error)
	GetByID(ctx context.Context, actor *auth.Claims, id string) (*models.Student, error)
	List(ctx context.Context, actor *auth.Claims, filter models.StudentFilter, page, size int) ([]*models.Student, int64, error)
	Update(ctx context.Context, actor *auth.Claims, id string, patch models.StudentPatch) (*models.Student, error)
	Delete(ctx context.Context, actor *auth.Claims, id string) error
	Courses(ctx context.Context, actor *auth.Claims, id string) ([]*models.Course, error)
}

type studentServiceImpl struct {
	students   repositories.StudentRepository
	courses    repositories.CourseRepository
	enrollment EnrollmentService
	guard      appauth.Guard
	hasher     *auth.PasswordHasher
	logger     zerolog.Logger
}

// NewStudentService creates a new student service instance
func NewStudentService(
	students repositories.StudentRepository,
	courses repositories.CourseRepository,
	enrollment EnrollmentService,
	guard appauth.Guard,
	hasher *auth.PasswordHasher,
	logger zerolog.Logger,
) StudentService {
	return &studentServiceImpl{
		students:   students,
		courses:    courses,
		enrollment: enrollment,
		guard:      guard,
		hasher:     hasher,
		logger:     logger,
	}
}

func (s *studentServiceImpl) Register(ctx context.Context, req *dto.RegisterStudentRequest) (*models.Student, error) {
	return s.create(ctx, req)
}

func (s *studentServiceImpl) Create(ctx context.Context, actor *auth.Claims, req *dto.RegisterStudentRequest) (*models.Student, error) {
	if err := s.guard.Authorize(actor, appauth.ActionCreateStudent, ""); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

func (s *studentServiceImpl) create(ctx context.Context, req *dto.RegisterStudentRequest) (*models.Student, error) {
	if req == nil {
		return nil, apperrors.NewValidationError("request body is required")
	}

	email := validation.NormalizeEmail(req.Email)
	number := strings.TrimSpace(req.StudentNumber)
	if err := validateStudentFields(&email, &number, &req.FirstName, &req.LastName, &req.Program); err != nil {
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
	student := &models.Student{
		ID:            uuid.NewString(),
		StudentNumber: number,
		Email:         email,
		Password:      hash,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
		Program:       strings.TrimSpace(req.Program),
		CourseIDs:     []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info().Str("studentId", student.ID).Str("studentNumber", student.StudentNumber).Msg("Student created")
	return student, nil
}

// validateStudentFields checks the non-nil fields of a create or a patch
func validateStudentFields(email, number, firstName, lastName, program *string) error {
	if email != nil && !validation.IsValidEmail(*email) {
		return apperrors.NewValidationError("invalid email format")
	}
	if number != nil && !validation.IsValidStudentNumber(*number) {
		return apperrors.NewValidationError("student number must be 6 to 12 digits")
	}
	if firstName != nil && !validation.IsValidName(*firstName) {
		return apperrors.NewValidationError("first name cannot be empty")
	}
	if lastName != nil && !validation.IsValidName(*lastName) {
		return apperrors.NewValidationError("last name cannot be empty")
	}
	if program != nil && !validation.IsValidName(*program) {
		return apperrors.NewValidationError("program cannot be empty")
	}
	return nil
}

func (s *studentServiceImpl) GetByID(ctx context.Context, actor *auth.Claims, id string) (*models.Student, error) {
	if err := s.guard.Authorize(actor, appauth.ActionViewProfile, id); err != nil {
		return nil, err
	}
	if !validation.IsValidID(id) {
		return nil, apperrors.NewValidationError("invalid student id")
	}
	return s.students.FindByID(ctx, id)
}

func (s *studentServiceImpl) List(ctx context.Context, actor *auth.Claims, filter models.StudentFilter, page, size int) ([]*models.Student, int64, error) {
	if err := s.guard.Authorize(actor, appauth.ActionListStudents, ""); err != nil {
		return nil, 0, err
	}
	if filter.CourseID != "" && !validation.IsValidID(filter.CourseID) {
		return nil, 0, apperrors.NewValidationError("invalid course id")
	}
	if filter.Email != "" {
		filter.Email = validation.NormalizeEmail(filter.Email)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	return s.students.Find(ctx, filter, offset, limit)
}

func (s *studentServiceImpl) Update(ctx context.Context, actor *auth.Claims, id string, patch models.StudentPatch) (*models.Student, error) {
	if err := s.guard.Authorize(actor, appauth.ActionUpdateStudent, id); err != nil {
		return nil, err
	}
	if !validation.IsValidID(id) {
		return nil, apperrors.NewValidationError("invalid student id")
	}
	if patch.Empty() {
		return nil, apperrors.NewValidationError("no fields to update")
	}

	if patch.Email != nil {
		email := validation.NormalizeEmail(*patch.Email)
		patch.Email = &email
	}
	trimPtr(patch.StudentNumber, patch.FirstName, patch.LastName, patch.Address, patch.City, patch.PhoneNumber, patch.Program)
	if err := validateStudentFields(patch.Email, patch.StudentNumber, patch.FirstName, patch.LastName, patch.Program); err != nil {
		return nil, err
	}

	student, err := s.students.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("studentId", id).Str("actor", actor.UserID).Msg("Student updated")
	return student, nil
}

// Delete removes the student record, then strips it from every course
func (s *studentServiceImpl) Delete(ctx context.Context, actor *auth.Claims, id string) error {
	if err := s.guard.Authorize(actor, appauth.ActionDeleteStudent, id); err != nil {
		return err
	}
	if !validation.IsValidID(id) {
		return apperrors.NewValidationError("invalid student id")
	}

	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.students.DeleteByID(ctx, id); err != nil {
		return err
	}
	if err := s.enrollment.PurgeStudent(ctx, id, student.CourseIDs); err != nil {
		return fmt.Errorf("student deleted but references remain: %w", err)
	}
	s.logger.Info().Str("studentId", id).Str("actor", actor.UserID).Msg("Student deleted")
	return nil
}

func (s *studentServiceImpl) Courses(ctx context.Context, actor *auth.Claims, id string) ([]*models.Course, error) {
	student, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.courses.FindByIDs(ctx, student.CourseIDs)
}

// trimPtr trims every non-nil string in place
func trimPtr(values ...*string) {
	for _, v := range values {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
}
