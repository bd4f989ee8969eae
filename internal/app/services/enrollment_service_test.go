package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

func TestEnrollIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	first, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if !first.Changed || first.State != models.EnrollmentStateEnrolled {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID)
	if err != nil {
		t.Fatalf("repeat enroll should succeed: %v", err)
	}
	if second.Changed || second.State != models.EnrollmentStateEnrolled {
		t.Fatalf("repeat enroll should be a no-op, got %+v", second)
	}

	env.assertLinked(t, student.ID, course.ID, true)
	if n := len(env.student(t, student.ID).CourseIDs); n != 1 {
		t.Fatalf("expected one course reference, got %d", n)
	}
}

func TestEnrollUnenrollRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	if _, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID); err != nil {
		t.Fatal(err)
	}
	res, err := env.services.Enrollment.Unenroll(ctx, claims, student.ID, course.ID)
	if err != nil {
		t.Fatalf("unenroll: %v", err)
	}
	if !res.Changed || res.State != models.EnrollmentStateNotEnrolled {
		t.Fatalf("unexpected unenroll result %+v", res)
	}
	env.assertLinked(t, student.ID, course.ID, false)

	res, err = env.services.Enrollment.Unenroll(ctx, claims, student.ID, course.ID)
	if err != nil || res.Changed {
		t.Fatalf("repeat unenroll should be a successful no-op: %+v %v", res, err)
	}
}

func TestConcurrentEnrollConverges(t *testing.T) {
	env := newTestEnv(t)
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.services.Enrollment.Enroll(context.Background(), claims, student.ID, course.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent enroll failed: %v", err)
	}

	s := env.student(t, student.ID)
	c := env.course(t, course.ID)
	if len(s.CourseIDs) != 1 || len(c.StudentIDs) != 1 {
		t.Fatalf("expected one reference per side, got %v / %v", s.CourseIDs, c.StudentIDs)
	}
}

func TestEnrollAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, _ := env.seedStudent(t)
	_, other := env.seedStudent(t)
	course := env.seedCourse(t)

	_, err := env.services.Enrollment.Enroll(ctx, other, student.ID, course.ID)
	assertKind(t, err, apperrors.KindForbidden)

	_, err = env.services.Enrollment.Enroll(ctx, nil, student.ID, course.ID)
	assertKind(t, err, apperrors.KindUnauthenticated)

	if _, err := env.services.Enrollment.Enroll(ctx, env.admin, student.ID, course.ID); err != nil {
		t.Fatalf("admin enroll: %v", err)
	}
	env.assertLinked(t, student.ID, course.ID, true)
}

func TestEnrollValidationAndNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	_, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, "not-a-uuid")
	assertKind(t, err, apperrors.KindValidation)

	_, err = env.services.Enrollment.Enroll(ctx, claims, student.ID, uuid.NewString())
	if !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}

	_, err = env.services.Enrollment.Enroll(ctx, env.admin, uuid.NewString(), course.ID)
	if !errors.Is(err, apperrors.ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	env.assertLinked(t, student.ID, course.ID, false)
}

func TestEnrollRetriesCourseSide(t *testing.T) {
	env := newTestEnv(t)
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	env.courses.failNext(2, fmt.Errorf("write: %w", apperrors.ErrStoreUnavailable))
	res, err := env.services.Enrollment.Enroll(context.Background(), claims, student.ID, course.ID)
	if err != nil {
		t.Fatalf("enroll should succeed on the third attempt: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected a change")
	}
	if env.courses.writes != 3 {
		t.Fatalf("expected 3 course-side attempts, got %d", env.courses.writes)
	}
	env.assertLinked(t, student.ID, course.ID, true)
	if env.repairs.len() != 0 {
		t.Fatal("no repair should be queued after a successful retry")
	}
}

func TestEnrollPartialFailureAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	env.courses.failNext(10, fmt.Errorf("write: %w", apperrors.ErrStoreUnavailable))
	_, err := env.services.Enrollment.Enroll(context.Background(), claims, student.ID, course.ID)

	assertKind(t, err, apperrors.KindPartialEnrollment)
	if !apperrors.Retryable(err) {
		t.Fatal("partial enrollment failures are retryable")
	}
	var perr *apperrors.PartialEnrollmentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PartialEnrollmentError, got %T", err)
	}
	if perr.InconsistentSide != apperrors.SideCourse || perr.Attempts != 3 || perr.Op != opEnroll {
		t.Fatalf("unexpected partial error %+v", perr)
	}
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatal("the last store error should stay in the chain")
	}

	if !env.student(t, student.ID).HasCourse(course.ID) || env.course(t, course.ID).HasStudent(student.ID) {
		t.Fatal("expected the student side written and the course side missing")
	}

	if env.repairs.len() != 1 {
		t.Fatalf("expected one repair request, got %d", env.repairs.len())
	}
	req := env.repairs.requests[0]
	if req.StudentID != student.ID || req.CourseID != course.ID || req.InconsistentSide != string(apperrors.SideCourse) {
		t.Fatalf("unexpected repair request %+v", req)
	}

	// the queued request heals the pair once the store recovers
	env.courses.failNext(0, nil)
	if err := env.services.Reconciler.Repair(context.Background(), req); err != nil {
		t.Fatalf("repair: %v", err)
	}
	env.assertLinked(t, student.ID, course.ID, true)
}

func TestUnenrollPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)
	if _, err := env.services.Enrollment.Enroll(context.Background(), claims, student.ID, course.ID); err != nil {
		t.Fatal(err)
	}

	env.courses.failNext(3, fmt.Errorf("write: %w", apperrors.ErrStoreUnavailable))
	_, err := env.services.Enrollment.Unenroll(context.Background(), claims, student.ID, course.ID)
	var perr *apperrors.PartialEnrollmentError
	if !errors.As(err, &perr) || perr.Op != opUnenroll || perr.InconsistentSide != apperrors.SideCourse {
		t.Fatalf("expected unenroll partial failure on the course side, got %v", err)
	}

	report, err := env.services.Reconciler.ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.PairsRepaired != 1 {
		t.Fatalf("expected the sweep to repair one pair, got %+v", report)
	}
	env.assertLinked(t, student.ID, course.ID, false)
}

func TestEnrollCompensatesWhenCourseVanishes(t *testing.T) {
	env := newTestEnv(t)
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	env.courses.beforeAdd = func() {
		_ = env.courses.CourseRepository.DeleteByID(context.Background(), course.ID)
	}
	_, err := env.services.Enrollment.Enroll(context.Background(), claims, student.ID, course.ID)
	if !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
	if env.student(t, student.ID).HasCourse(course.ID) {
		t.Fatal("student-side write was not compensated")
	}
	if env.repairs.len() != 0 {
		t.Fatal("a clean compensation needs no repair")
	}
}

func TestUnenrollToleratesDeletedCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)
	if _, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID); err != nil {
		t.Fatal(err)
	}
	_ = env.repos.CourseRepository.DeleteByID(ctx, course.ID)

	res, err := env.services.Enrollment.Unenroll(ctx, claims, student.ID, course.ID)
	if err != nil {
		t.Fatalf("unenroll from a deleted course: %v", err)
	}
	if !res.Changed || env.student(t, student.ID).HasCourse(course.ID) {
		t.Fatal("dangling reference was not removed")
	}
}

func TestEnrollCanceledDuringBackoff(t *testing.T) {
	env := newTestEnv(t)
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	ctx, cancel := context.WithCancel(context.Background())
	env.courses.failNext(10, fmt.Errorf("write: %w", apperrors.ErrStoreUnavailable))
	env.services.Enrollment.(*enrollmentServiceImpl).sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID)
	var perr *apperrors.PartialEnrollmentError
	if !errors.As(err, &perr) || perr.Attempts != 1 {
		t.Fatalf("expected a partial failure after one attempt, got %v", err)
	}
	if env.repairs.len() != 1 {
		t.Fatal("the repair must be queued even though the request context ended")
	}
}

func TestCourseDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	var ids []string
	for i := 0; i < 3; i++ {
		s, claims := env.seedStudent(t)
		if _, err := env.services.Enrollment.Enroll(ctx, claims, s.ID, course.ID); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, s.ID)
	}
	// a one-sided reference from an earlier partial failure
	dangling, _ := env.seedStudent(t)
	_, _ = env.repos.StudentRepository.AddCourse(ctx, dangling.ID, course.ID)
	ids = append(ids, dangling.ID)

	if err := env.services.Course.Delete(ctx, env.admin, course.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}
	for _, id := range ids {
		if env.student(t, id).HasCourse(course.ID) {
			t.Fatalf("student %s still references the deleted course", id)
		}
	}
	if _, err := env.repos.CourseRepository.FindByID(ctx, course.ID); !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("course not deleted: %v", err)
	}
}

func TestStudentDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	c1 := env.seedCourse(t)
	c2 := env.seedCourse(t)
	for _, c := range []*models.Course{c1, c2} {
		if _, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, c.ID); err != nil {
			t.Fatal(err)
		}
	}

	if err := env.services.Student.Delete(ctx, claims, student.ID); err != nil {
		t.Fatalf("self delete: %v", err)
	}
	for _, c := range []*models.Course{c1, c2} {
		if env.course(t, c.ID).HasStudent(student.ID) {
			t.Fatalf("course %s still references the deleted student", c.ID)
		}
	}
}

func TestCourseDeleteCascadeFailureQueuesRepair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)
	if _, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID); err != nil {
		t.Fatal(err)
	}

	env.courses.failNext(10, fmt.Errorf("write: %w", apperrors.ErrStoreUnavailable))
	err := env.services.Course.Delete(ctx, env.admin, course.ID)
	assertKind(t, err, apperrors.KindPartialEnrollment)
	env.courses.failNext(0, nil)

	if _, err := env.repos.CourseRepository.FindByID(ctx, course.ID); !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("course should be deleted before the cascade runs: %v", err)
	}
	if env.student(t, student.ID).HasCourse(course.ID) {
		t.Fatal("student side must be cleared even when the course side fails")
	}
	if env.repairs.len() != 1 {
		t.Fatalf("expected one queued repair, got %d", env.repairs.len())
	}
}

func TestCourseDeleteRacingEnroll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	// an enroll that completes after the record was read but before it is deleted
	env.courses.beforeDelete = func() {
		if _, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID); err != nil {
			t.Errorf("enroll during delete: %v", err)
		}
	}
	if err := env.services.Course.Delete(ctx, env.admin, course.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}

	if got := env.student(t, student.ID).CourseIDs; len(got) != 0 {
		t.Fatalf("student still references deleted course: %v", got)
	}
}

func TestEnrollRacingCourseDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	// the delete and its cascade finish between the student-side and course-side writes
	env.courses.beforeAdd = func() {
		env.courses.beforeAdd = nil
		if err := env.services.Course.Delete(ctx, env.admin, course.ID); err != nil {
			t.Errorf("delete course: %v", err)
		}
	}
	_, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID)
	assertKind(t, err, apperrors.KindNotFound)

	if got := env.student(t, student.ID).CourseIDs; len(got) != 0 {
		t.Fatalf("student still references deleted course: %v", got)
	}
}

func TestStudentDeleteRacingEnroll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	env.students.beforeDelete = func() {
		if _, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID); err != nil {
			t.Errorf("enroll during delete: %v", err)
		}
	}
	if err := env.services.Student.Delete(ctx, env.admin, student.ID); err != nil {
		t.Fatalf("delete student: %v", err)
	}

	if env.course(t, course.ID).HasStudent(student.ID) {
		t.Fatal("course still references deleted student")
	}
}

func TestEnrollRacingStudentDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)

	// the student is deleted and purged before the course-side write lands
	env.courses.beforeAdd = func() {
		env.courses.beforeAdd = nil
		if err := env.services.Student.Delete(ctx, env.admin, student.ID); err != nil {
			t.Errorf("delete student: %v", err)
		}
	}
	_, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID)
	assertKind(t, err, apperrors.KindNotFound)

	if env.course(t, course.ID).HasStudent(student.ID) {
		t.Fatal("course still references deleted student")
	}
}

func TestUnionIDs(t *testing.T) {
	got := unionIDs([]string{"a", "b"}, []string{"b", "c", "a"})
	want := []string{"a", "b", "c"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
