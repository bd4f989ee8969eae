package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/coursereg/internal/app/auth"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
	"github.com/yigit/coursereg/internal/pkg/helpers"
	"github.com/yigit/coursereg/internal/pkg/validation"
)

const (
	opEnroll   = "enroll"
	opUnenroll = "unenroll"

	maxRetryBackoff = 2 * time.Second
)

// EnrollmentService keeps Student.CourseIDs and Course.StudentIDs in agreement.
//
// The student side is always written first. The course side is retried up to
// EnrollmentConfig.MaxAttempts times; when it still fails the caller gets a
// *apperrors.PartialEnrollmentError and the pair is handed to the RepairQueue.
type EnrollmentService interface {
	Enroll(ctx context.Context, actor *auth.Claims, studentID, courseID string) (*models.EnrollmentResult, error)
	Unenroll(ctx context.Context, actor *auth.Claims, studentID, courseID string) (*models.EnrollmentResult, error)

	// PurgeStudent strips a deleted student from every course referencing it. known holds
	// the course ids the record listed before it was deleted; the reverse lookup covers the rest.
	PurgeStudent(ctx context.Context, studentID string, known []string) error
	// PurgeCourse strips a deleted course from every student referencing it. known holds
	// the student ids the record listed before it was deleted.
	PurgeCourse(ctx context.Context, courseID string, known []string) error
}

// EnrollmentConfig bounds the course-side retries
type EnrollmentConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

type enrollmentServiceImpl struct {
	students repositories.StudentRepository
	courses  repositories.CourseRepository
	guard    appauth.Guard
	repairs  RepairQueue
	config   EnrollmentConfig
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewEnrollmentService creates the enrollment coordinator
func NewEnrollmentService(
	students repositories.StudentRepository,
	courses repositories.CourseRepository,
	guard appauth.Guard,
	repairs RepairQueue,
	config EnrollmentConfig,
	logger zerolog.Logger,
) EnrollmentService {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &enrollmentServiceImpl{
		students: students,
		courses:  courses,
		guard:    guard,
		repairs:  repairs,
		config:   config,
		logger:   logger.With().Str("component", "enrollment").Logger(),
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func validatePair(studentID, courseID string) error {
	if !validation.IsValidID(studentID) {
		return apperrors.NewValidationError("invalid student id")
	}
	if !validation.IsValidID(courseID) {
		return apperrors.NewValidationError("invalid course id")
	}
	return nil
}

// Enroll links the student and the course. Enrolling an enrolled pair succeeds with Changed=false.
func (s *enrollmentServiceImpl) Enroll(ctx context.Context, actor *auth.Claims, studentID, courseID string) (*models.EnrollmentResult, error) {
	if err := s.guard.Authorize(actor, appauth.ActionEnroll, studentID); err != nil {
		return nil, err
	}
	if err := validatePair(studentID, courseID); err != nil {
		return nil, err
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, err
	}

	studentChanged, err := s.students.AddCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to add course to student: %w", err)
	}

	courseChanged, attempts, err := s.retryCourseSide(ctx, func(ctx context.Context) (bool, error) {
		return s.courses.AddStudent(ctx, courseID, studentID)
	})
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrResourceNotFound):
		// course deleted between the existence check and the write
		return nil, s.compensateEnroll(ctx, studentID, courseID, studentChanged, err)
	default:
		return nil, s.partialFailure(ctx, opEnroll, studentID, courseID, apperrors.SideCourse, attempts, err)
	}

	// the student may have been deleted, and purged, while the course side was written
	if _, err := s.students.FindByID(ctx, studentID); errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, s.compensateCourse(ctx, studentID, courseID, courseChanged, err)
	} else if err != nil {
		s.logger.Warn().Err(err).Str("studentId", studentID).Msg("Could not confirm student after enroll")
	}

	changed := studentChanged || courseChanged
	s.logger.Info().
		Str("studentId", studentID).
		Str("courseId", courseID).
		Bool("changed", changed).
		Str("actor", actor.UserID).
		Msg("Student enrolled")

	return &models.EnrollmentResult{
		StudentID: studentID,
		CourseID:  courseID,
		State:     models.EnrollmentStateEnrolled,
		Changed:   changed,
	}, nil
}

// compensateEnroll undoes the student-side write after the course vanished
func (s *enrollmentServiceImpl) compensateEnroll(ctx context.Context, studentID, courseID string, studentChanged bool, cause error) error {
	if !studentChanged {
		return cause
	}
	if _, err := s.students.RemoveCourse(ctx, studentID, courseID); err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return s.partialFailure(ctx, opEnroll, studentID, courseID, apperrors.SideStudent, 1, err)
	}
	return cause
}

// compensateCourse undoes the course-side write after the student vanished
func (s *enrollmentServiceImpl) compensateCourse(ctx context.Context, studentID, courseID string, courseChanged bool, cause error) error {
	if !courseChanged {
		return cause
	}
	_, attempts, err := s.retryCourseSide(ctx, func(ctx context.Context) (bool, error) {
		return s.courses.RemoveStudent(ctx, courseID, studentID)
	})
	if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return s.partialFailure(ctx, opEnroll, studentID, courseID, apperrors.SideCourse, attempts, err)
	}
	return cause
}

// Unenroll unlinks the student and the course. The course may already be gone.
func (s *enrollmentServiceImpl) Unenroll(ctx context.Context, actor *auth.Claims, studentID, courseID string) (*models.EnrollmentResult, error) {
	if err := s.guard.Authorize(actor, appauth.ActionEnroll, studentID); err != nil {
		return nil, err
	}
	if err := validatePair(studentID, courseID); err != nil {
		return nil, err
	}

	changed, err := s.unlink(ctx, studentID, courseID, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("studentId", studentID).
		Str("courseId", courseID).
		Bool("changed", changed).
		Str("actor", actor.UserID).
		Msg("Student unenrolled")

	return &models.EnrollmentResult{
		StudentID: studentID,
		CourseID:  courseID,
		State:     models.EnrollmentStateNotEnrolled,
		Changed:   changed,
	}, nil
}

// unlink removes the pair from both sides. A missing course is not an error; a missing
// student is only an error when requireStudent is set.
func (s *enrollmentServiceImpl) unlink(ctx context.Context, studentID, courseID string, requireStudent bool) (bool, error) {
	studentChanged, err := s.students.RemoveCourse(ctx, studentID, courseID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrResourceNotFound) || requireStudent {
			return false, fmt.Errorf("failed to remove course from student: %w", err)
		}
	}

	courseChanged, attempts, err := s.retryCourseSide(ctx, func(ctx context.Context) (bool, error) {
		changed, err := s.courses.RemoveStudent(ctx, courseID, studentID)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return false, nil
		}
		return changed, err
	})
	if err != nil {
		return false, s.partialFailure(ctx, opUnenroll, studentID, courseID, apperrors.SideCourse, attempts, err)
	}
	return studentChanged || courseChanged, nil
}

// retryCourseSide runs write until it succeeds, reports NotFound, or the attempts run out.
func (s *enrollmentServiceImpl) retryCourseSide(ctx context.Context, write func(ctx context.Context) (bool, error)) (bool, int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		changed, err := write(ctx)
		if err == nil {
			return changed, attempt, nil
		}
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return false, attempt, err
		}
		lastErr = err

		if attempt == s.config.MaxAttempts {
			return false, attempt, lastErr
		}
		wait := helpers.Backoff(s.config.RetryBackoff, maxRetryBackoff, attempt)
		s.logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("Course-side write failed, retrying")
		if err := s.sleep(ctx, wait); err != nil {
			return false, attempt, errors.Join(lastErr, err)
		}
	}
	return false, s.config.MaxAttempts, lastErr
}

func (s *enrollmentServiceImpl) partialFailure(ctx context.Context, op, studentID, courseID string, side apperrors.Side, attempts int, cause error) error {
	perr := &apperrors.PartialEnrollmentError{
		Op:               op,
		StudentID:        studentID,
		CourseID:         courseID,
		InconsistentSide: side,
		Attempts:         attempts,
		Err:              cause,
	}
	s.logger.Error().Err(cause).
		Str("op", op).
		Str("studentId", studentID).
		Str("courseId", courseID).
		Str("side", string(side)).
		Int("attempts", attempts).
		Msg("Enrollment left one side inconsistent")

	req := models.RepairRequest{
		StudentID:        studentID,
		CourseID:         courseID,
		Op:               op,
		InconsistentSide: string(side),
		RequestedAt:      time.Now().UTC(),
	}
	if err := s.repairs.Enqueue(context.WithoutCancel(ctx), req); err != nil {
		s.logger.Error().Err(err).Str("studentId", studentID).Str("courseId", courseID).Msg("Failed to enqueue repair request")
	}
	return perr
}

func (s *enrollmentServiceImpl) PurgeStudent(ctx context.Context, studentID string, known []string) error {
	reverse, err := s.courses.FindIDsByStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to find courses of student: %w", err)
	}

	ids := unionIDs(known, reverse)
	var errs []error
	for _, courseID := range ids {
		if _, err := s.unlink(ctx, studentID, courseID, false); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Debug().Str("studentId", studentID).Int("courses", len(ids)).Msg("Student references purged")
	return nil
}

func (s *enrollmentServiceImpl) PurgeCourse(ctx context.Context, courseID string, known []string) error {
	reverse, err := s.students.FindIDsByCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to find students of course: %w", err)
	}

	ids := unionIDs(known, reverse)
	var errs []error
	for _, studentID := range ids {
		if _, err := s.unlink(ctx, studentID, courseID, false); err != nil {
			var partial *apperrors.PartialEnrollmentError
			if !errors.As(err, &partial) {
				// the course is gone, so only the student side can still be stale
				err = s.partialFailure(ctx, opUnenroll, studentID, courseID, apperrors.SideStudent, 1, err)
			}
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Debug().Str("courseId", courseID).Int("students", len(ids)).Msg("Course references purged")
	return nil
}

// unionIDs merges a and b without duplicates, keeping first-seen order
func unionIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
