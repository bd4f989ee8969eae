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
)

const reconcilePageSize = 100

type pair struct {
	studentID string
	courseID  string
}

// Reconciler repairs (student, course) pairs whose two sides disagree.
// The student side is authoritative because the coordinator writes it first.
type Reconciler struct {
	students repositories.StudentRepository
	courses  repositories.CourseRepository
	guard    appauth.Guard
	logger   zerolog.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(students repositories.StudentRepository, courses repositories.CourseRepository, guard appauth.Guard, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		students: students,
		courses:  courses,
		guard:    guard,
		logger:   logger.With().Str("component", "reconciler").Logger(),
	}
}

// ReconcilePair makes the course side agree with the student side. It returns true when
// a write was needed.
func (r *Reconciler) ReconcilePair(ctx context.Context, studentID, courseID string) (bool, error) {
	student, err := r.students.FindByID(ctx, studentID)
	if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return false, err
	}
	studentLists := err == nil && student.HasCourse(courseID)

	if !studentLists {
		changed, err := r.courses.RemoveStudent(ctx, courseID, studentID)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return false, nil
		}
		return changed, err
	}

	changed, err := r.courses.AddStudent(ctx, courseID, studentID)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		// dangling reference to a deleted course
		return r.students.RemoveCourse(ctx, studentID, courseID)
	}
	return changed, err
}

// Repair handles one queued repair request
func (r *Reconciler) Repair(ctx context.Context, req models.RepairRequest) error {
	repaired, err := r.ReconcilePair(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return fmt.Errorf("failed to repair pair %s/%s: %w", req.StudentID, req.CourseID, err)
	}
	r.logger.Info().
		Str("studentId", req.StudentID).
		Str("courseId", req.CourseID).
		Bool("repaired", repaired).
		Msg("Repair request processed")
	return nil
}

// Trigger runs a full sweep on behalf of actor
func (r *Reconciler) Trigger(ctx context.Context, actor *auth.Claims) (*models.ReconcileReport, error) {
	if err := r.guard.Authorize(actor, appauth.ActionReconcile, ""); err != nil {
		return nil, err
	}
	return r.ReconcileAll(ctx)
}

// ReconcileAll checks every pair referenced by either side. Per-pair failures are counted,
// not returned; an error means a listing failed or ctx ended.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*models.ReconcileReport, error) {
	report := &models.ReconcileReport{}
	checked := make(map[pair]struct{})

	check := func(p pair) {
		if _, ok := checked[p]; ok {
			return
		}
		checked[p] = struct{}{}
		report.PairsChecked++

		repaired, err := r.ReconcilePair(ctx, p.studentID, p.courseID)
		if err != nil {
			report.Failures++
			r.logger.Warn().Err(err).Str("studentId", p.studentID).Str("courseId", p.courseID).Msg("Pair reconcile failed")
			return
		}
		if repaired {
			report.PairsRepaired++
		}
	}

	for offset := uint64(0); ; offset += reconcilePageSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		students, total, err := r.students.Find(ctx, models.StudentFilter{}, offset, reconcilePageSize)
		if err != nil {
			return report, fmt.Errorf("failed to list students: %w", err)
		}
		for _, s := range students {
			for _, courseID := range s.CourseIDs {
				check(pair{studentID: s.ID, courseID: courseID})
			}
		}
		if len(students) == 0 || offset+uint64(len(students)) >= uint64(total) {
			break
		}
	}

	for offset := uint64(0); ; offset += reconcilePageSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		courses, total, err := r.courses.Find(ctx, models.CourseFilter{}, offset, reconcilePageSize)
		if err != nil {
			return report, fmt.Errorf("failed to list courses: %w", err)
		}
		for _, c := range courses {
			for _, studentID := range c.StudentIDs {
				check(pair{studentID: studentID, courseID: c.ID})
			}
		}
		if len(courses) == 0 || offset+uint64(len(courses)) >= uint64(total) {
			break
		}
	}

	r.logger.Info().
		Int("checked", report.PairsChecked).
		Int("repaired", report.PairsRepaired).
		Int("failures", report.Failures).
		Msg("Reconcile sweep finished")
	return report, nil
}

// Run sweeps every interval until ctx is done. A non-positive interval disables it.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.logger.Info().Msg("Periodic reconcile disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReconcileAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error().Err(err).Msg("Reconcile sweep failed")
			}
		}
	}
}
