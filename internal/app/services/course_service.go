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

// CourseService defines the interface for course operations
type CourseService interface {
	Create(ctx context.Context, actor *auth.Claims, req *dto.CreateCourseRequest) (*models.Course, error)
	GetByID(ctx context.Context, actor *auth.Claims, id string) (*models.Course, error)
	GetByCode(ctx context.Context, actor *auth.Claims, code string) (*models.Course, error)
	List(ctx context.Context, actor *auth.Claims, filter models.CourseFilter, page, size int) ([]*models.Course, int64, error)
	Update(ctx context.Context, actor *auth.Claims, id string, patch models.CoursePatch) (*models.Course, error)
	Delete(ctx context.Context, actor *auth.Claims, id string) error
	Roster(ctx context.Context, actor *auth.Claims, id string) ([]*models.Student, error)
}

type courseServiceImpl struct {
	courses    repositories.CourseRepository
	students   repositories.StudentRepository
	enrollment EnrollmentService
	guard      appauth.Guard
	logger     zerolog.Logger
}

// NewCourseService creates a new course service instance
func NewCourseService(
	courses repositories.CourseRepository,
	students repositories.StudentRepository,
	enrollment EnrollmentService,
	guard appauth.Guard,
	logger zerolog.Logger,
) CourseService {
	return &courseServiceImpl{
		courses:    courses,
		students:   students,
		enrollment: enrollment,
		guard:      guard,
		logger:     logger,
	}
}

func validateCourseFields(code, name, section, semester *string) error {
	if code != nil && !validation.IsValidCourseCode(*code) {
		return apperrors.NewValidationError("course code must look like COMP308")
	}
	if name != nil && !validation.IsValidName(*name) {
		return apperrors.NewValidationError("course name cannot be empty")
	}
	if section != nil && strings.TrimSpace(*section) == "" {
		return apperrors.NewValidationError("section cannot be empty")
	}
	if semester != nil && strings.TrimSpace(*semester) == "" {
		return apperrors.NewValidationError("semester cannot be empty")
	}
	return nil
}

func (s *courseServiceImpl) Create(ctx context.Context, actor *auth.Claims, req *dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.guard.Authorize(actor, appauth.ActionManageCourse, ""); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.NewValidationError("request body is required")
	}

	code := validation.NormalizeCourseCode(req.CourseCode)
	name := strings.TrimSpace(req.CourseName)
	section := strings.TrimSpace(req.Section)
	semester := strings.TrimSpace(req.Semester)
	if err := validateCourseFields(&code, &name, &section, &semester); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	course := &models.Course{
		ID:         uuid.NewString(),
		CourseCode: code,
		CourseName: name,
		Section:    section,
		Semester:   semester,
		StudentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}

	s.logger.Info().Str("courseId", course.ID).Str("courseCode", course.CourseCode).Str("actor", actor.UserID).Msg("Course created")
	return course, nil
}

func (s *courseServiceImpl) GetByID(ctx context.Context, actor *auth.Claims, id string) (*models.Course, error) {
	if err := s.guard.Authorize(actor, appauth.ActionViewCourses, ""); err != nil {
		return nil, err
	}
	if !validation.IsValidID(id) {
		return nil, apperrors.NewValidationError("invalid course id")
	}
	return s.courses.FindByID(ctx, id)
}

func (s *courseServiceImpl) GetByCode(ctx context.Context, actor *auth.Claims, code string) (*models.Course, error) {
	if err := s.guard.Authorize(actor, appauth.ActionViewCourses, ""); err != nil {
		return nil, err
	}
	code = validation.NormalizeCourseCode(code)
	if !validation.IsValidCourseCode(code) {
		return nil, apperrors.NewValidationError("invalid course code")
	}
	return s.courses.FindByCode(ctx, code)
}

func (s *courseServiceImpl) List(ctx context.Context, actor *auth.Claims, filter models.CourseFilter, page, size int) ([]*models.Course, int64, error) {
	if err := s.guard.Authorize(actor, appauth.ActionViewCourses, ""); err != nil {
		return nil, 0, err
	}
	// filtering by student exposes that student's enrollments
	if filter.StudentID != "" {
		if err := s.guard.Authorize(actor, appauth.ActionViewProfile, filter.StudentID); err != nil {
			return nil, 0, err
		}
		if !validation.IsValidID(filter.StudentID) {
			return nil, 0, apperrors.NewValidationError("invalid student id")
		}
	}
	filter.Search = strings.TrimSpace(filter.Search)

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	return s.courses.Find(ctx, filter, offset, limit)
}

func (s *courseServiceImpl) Update(ctx context.Context, actor *auth.Claims, id string, patch models.CoursePatch) (*models.Course, error) {
	if err := s.guard.Authorize(actor, appauth.ActionManageCourse, ""); err != nil {
		return nil, err
	}
	if !validation.IsValidID(id) {
		return nil, apperrors.NewValidationError("invalid course id")
	}
	if patch.Empty() {
		return nil, apperrors.NewValidationError("no fields to update")
	}

	if patch.CourseCode != nil {
		code := validation.NormalizeCourseCode(*patch.CourseCode)
		patch.CourseCode = &code
	}
	trimPtr(patch.CourseName, patch.Section, patch.Semester)
	if err := validateCourseFields(patch.CourseCode, patch.CourseName, patch.Section, patch.Semester); err != nil {
		return nil, err
	}

	course, err := s.courses.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("courseId", id).Str("actor", actor.UserID).Msg("Course updated")
	return course, nil
}

// Delete removes the course, then strips it from every student. Deleting first means an
// enroll racing the delete fails its course-side write and compensates.
func (s *courseServiceImpl) Delete(ctx context.Context, actor *auth.Claims, id string) error {
	if err := s.guard.Authorize(actor, appauth.ActionManageCourse, ""); err != nil {
		return err
	}
	if !validation.IsValidID(id) {
		return apperrors.NewValidationError("invalid course id")
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.courses.DeleteByID(ctx, id); err != nil {
		return err
	}
	if err := s.enrollment.PurgeCourse(ctx, id, course.StudentIDs); err != nil {
		return fmt.Errorf("course deleted but references remain: %w", err)
	}
	s.logger.Info().Str("courseId", id).Str("actor", actor.UserID).Msg("Course deleted")
	return nil
}

func (s *courseServiceImpl) Roster(ctx context.Context, actor *auth.Claims, id string) ([]*models.Student, error) {
	if err := s.guard.Authorize(actor, appauth.ActionViewCourseRoster, ""); err != nil {
		return nil, err
	}
	if !validation.IsValidID(id) {
		return nil, apperrors.NewValidationError("invalid course id")
	}
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.students.FindByIDs(ctx, course.StudentIDs)
}
