package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

func TestReconcilePairStudentSideWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, _ := env.seedStudent(t)
	course := env.seedCourse(t)

	// student lists the course, course does not list the student
	_, _ = env.repos.StudentRepository.AddCourse(ctx, student.ID, course.ID)
	repaired, err := env.services.Reconciler.ReconcilePair(ctx, student.ID, course.ID)
	if err != nil || !repaired {
		t.Fatalf("expected a repair, got %v %v", repaired, err)
	}
	env.assertLinked(t, student.ID, course.ID, true)

	repaired, err = env.services.Reconciler.ReconcilePair(ctx, student.ID, course.ID)
	if err != nil || repaired {
		t.Fatalf("consistent pair should need no repair, got %v %v", repaired, err)
	}

	// course lists the student, student does not list the course
	_, _ = env.repos.StudentRepository.RemoveCourse(ctx, student.ID, course.ID)
	repaired, err = env.services.Reconciler.ReconcilePair(ctx, student.ID, course.ID)
	if err != nil || !repaired {
		t.Fatalf("expected a repair, got %v %v", repaired, err)
	}
	env.assertLinked(t, student.ID, course.ID, false)
}

func TestReconcilePairDanglingReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, _ := env.seedStudent(t)
	course := env.seedCourse(t)

	goneCourse := uuid.NewString()
	_, _ = env.repos.StudentRepository.AddCourse(ctx, student.ID, goneCourse)
	repaired, err := env.services.Reconciler.ReconcilePair(ctx, student.ID, goneCourse)
	if err != nil || !repaired {
		t.Fatalf("dangling course reference: %v %v", repaired, err)
	}
	if env.student(t, student.ID).HasCourse(goneCourse) {
		t.Fatal("reference to a deleted course survived")
	}

	goneStudent := uuid.NewString()
	_, _ = env.repos.CourseRepository.AddStudent(ctx, course.ID, goneStudent)
	repaired, err = env.services.Reconciler.ReconcilePair(ctx, goneStudent, course.ID)
	if err != nil || !repaired {
		t.Fatalf("dangling student reference: %v %v", repaired, err)
	}
	if env.course(t, course.ID).HasStudent(goneStudent) {
		t.Fatal("reference to a deleted student survived")
	}
}

func TestReconcileAllReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)

	healthy, claims := env.seedStudent(t)
	if _, err := env.services.Enrollment.Enroll(ctx, claims, healthy.ID, course.ID); err != nil {
		t.Fatal(err)
	}
	oneSided, _ := env.seedStudent(t)
	_, _ = env.repos.StudentRepository.AddCourse(ctx, oneSided.ID, course.ID)

	report, err := env.services.Reconciler.Trigger(ctx, env.admin)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	want := models.ReconcileReport{PairsChecked: 2, PairsRepaired: 1}
	if *report != want {
		t.Fatalf("report = %+v, want %+v", *report, want)
	}
	env.assertLinked(t, oneSided.ID, course.ID, true)
}

func TestReconcileAllCountsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	student, _ := env.seedStudent(t)
	_, _ = env.repos.StudentRepository.AddCourse(ctx, student.ID, course.ID)

	env.courses.failNext(1, apperrors.ErrStoreUnavailable)
	report, err := env.services.Reconciler.ReconcileAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failures != 1 || report.PairsRepaired != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestReconcileTriggerRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, claims := env.seedStudent(t)
	_, err := env.services.Reconciler.Trigger(context.Background(), claims)
	assertKind(t, err, apperrors.KindForbidden)
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.services.Reconciler.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// disabled interval returns immediately
	env.services.Reconciler.Run(context.Background(), 0)
}

func TestRepairWrapsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	student, _ := env.seedStudent(t)
	_, _ = env.repos.StudentRepository.AddCourse(ctx, student.ID, course.ID)

	env.courses.failNext(1, apperrors.ErrStoreUnavailable)
	err := env.services.Reconciler.Repair(ctx, models.RepairRequest{StudentID: student.ID, CourseID: course.ID})
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("expected the store error, got %v", err)
	}
}
