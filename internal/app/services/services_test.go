package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/app/repositories/memory"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

// testEnv wires the services on the in-memory store
type testEnv struct {
	repos    *repositories.Repositories
	courses  *flakyCourses
	students *hookedStudents
	repairs  *recordingQueue
	services *Services
	jwt      *auth.JWTService
	hasher   *auth.PasswordHasher
	admin    *auth.Claims
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := memory.NewRepositories()
	flaky := &flakyCourses{CourseRepository: repos.CourseRepository}
	repos.CourseRepository = flaky
	hooked := &hookedStudents{StudentRepository: repos.StudentRepository}
	repos.StudentRepository = hooked

	env := &testEnv{
		repos:    repos,
		courses:  flaky,
		students: hooked,
		repairs:  &recordingQueue{},
		jwt: auth.NewJWTService(auth.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenExp: time.Hour,
			TokenIssuer:    "coursereg.test",
		}),
		hasher: auth.NewPasswordHasher(bcrypt.MinCost),
	}
	env.services = New(Deps{
		Repos:      repos,
		JWT:        env.jwt,
		Hasher:     env.hasher,
		Repairs:    env.repairs,
		Enrollment: EnrollmentConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond},
		Logger:     zerolog.Nop(),
	})
	env.services.Enrollment.(*enrollmentServiceImpl).sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}

	env.admin = env.seedAdmin(t, "root")
	return env
}

func (e *testEnv) seedAdmin(t *testing.T, username string) *auth.Claims {
	t.Helper()
	hash, _ := e.hasher.HashPassword("Secret123")
	admin := &models.Admin{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@school.edu",
		Password:  hash,
		FirstName: "Ada",
		LastName:  "Admin",
	}
	if err := e.repos.AdminRepository.Create(context.Background(), admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return &auth.Claims{UserID: admin.ID, Role: models.RoleAdmin}
}

var seq int

func (e *testEnv) seedStudent(t *testing.T) (*models.Student, *auth.Claims) {
	t.Helper()
	seq++
	s := &models.Student{
		ID:            uuid.NewString(),
		StudentNumber: fmt.Sprintf("3%07d", seq),
		Email:         fmt.Sprintf("student%d@school.edu", seq),
		FirstName:     "Jane",
		LastName:      "Doe",
		Program:       "Software Engineering",
		CourseIDs:     []string{},
	}
	if err := e.repos.StudentRepository.Create(context.Background(), s); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return s, &auth.Claims{UserID: s.ID, Role: models.RoleStudent}
}

func (e *testEnv) seedCourse(t *testing.T) *models.Course {
	t.Helper()
	seq++
	c := &models.Course{
		ID:         uuid.NewString(),
		CourseCode: fmt.Sprintf("COMP%03d", seq%1000),
		CourseName: "Emerging Technologies",
		Section:    "001",
		Semester:   "Fall 2026",
		StudentIDs: []string{},
	}
	if err := e.repos.CourseRepository.Create(context.Background(), c); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

func (e *testEnv) student(t *testing.T, id string) *models.Student {
	t.Helper()
	s, err := e.repos.StudentRepository.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find student: %v", err)
	}
	return s
}

func (e *testEnv) course(t *testing.T, id string) *models.Course {
	t.Helper()
	c, err := e.repos.CourseRepository.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find course: %v", err)
	}
	return c
}

// assertLinked checks that both sides agree on the pair
func (e *testEnv) assertLinked(t *testing.T, studentID, courseID string, want bool) {
	t.Helper()
	s := e.student(t, studentID)
	c := e.course(t, courseID)
	if s.HasCourse(courseID) != want || c.HasStudent(studentID) != want {
		t.Fatalf("pair %s/%s: student side=%v course side=%v, want %v",
			studentID, courseID, s.HasCourse(courseID), c.HasStudent(studentID), want)
	}
}

// flakyCourses fails the course-side set writes while failWrites > 0
type flakyCourses struct {
	repositories.CourseRepository

	mu         sync.Mutex
	failWrites int
	writes     int
	failErr    error
	beforeAdd  func()

	beforeDelete func()
}

func (f *flakyCourses) failNext(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = n
	f.failErr = err
}

func (f *flakyCourses) fault() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failWrites > 0 {
		f.failWrites--
		return f.failErr
	}
	return nil
}

func (f *flakyCourses) AddStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	if f.beforeAdd != nil {
		f.beforeAdd()
	}
	if err := f.fault(); err != nil {
		return false, err
	}
	return f.CourseRepository.AddStudent(ctx, courseID, studentID)
}

func (f *flakyCourses) RemoveStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	if err := f.fault(); err != nil {
		return false, err
	}
	return f.CourseRepository.RemoveStudent(ctx, courseID, studentID)
}

func (f *flakyCourses) DeleteByID(ctx context.Context, id string) error {
	if hook := f.beforeDelete; hook != nil {
		f.beforeDelete = nil
		hook()
	}
	return f.CourseRepository.DeleteByID(ctx, id)
}

// hookedStudents runs beforeDelete once, just before the next student delete
type hookedStudents struct {
	repositories.StudentRepository

	beforeDelete func()
}

func (h *hookedStudents) DeleteByID(ctx context.Context, id string) error {
	if hook := h.beforeDelete; hook != nil {
		h.beforeDelete = nil
		hook()
	}
	return h.StudentRepository.DeleteByID(ctx, id)
}

type recordingQueue struct {
	mu       sync.Mutex
	requests []models.RepairRequest
}

func (q *recordingQueue) Enqueue(_ context.Context, req models.RepairRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requests = append(q.requests, req)
	return nil
}

func (q *recordingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

func assertKind(t *testing.T, err error, want apperrors.Kind) {
	t.Helper()
	if got := apperrors.KindOf(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}

func TestNewFallsBackToLoggingRepairQueue(t *testing.T) {
	svc := New(Deps{
		Repos:  memory.NewRepositories(),
		Hasher: auth.NewPasswordHasher(bcrypt.MinCost),
		Logger: zerolog.Nop(),
	})
	impl := svc.Enrollment.(*enrollmentServiceImpl)
	if _, ok := impl.repairs.(*logRepairQueue); !ok {
		t.Fatalf("expected logging repair queue, got %T", impl.repairs)
	}
	if err := impl.repairs.Enqueue(context.Background(), models.RepairRequest{}); err != nil {
		t.Fatal(err)
	}
	if impl.config.MaxAttempts != 1 {
		t.Fatalf("zero max attempts should clamp to 1, got %d", impl.config.MaxAttempts)
	}
}
