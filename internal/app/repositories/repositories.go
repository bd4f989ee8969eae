package repositories

import (
	"context"

	"github.com/yigit/coursereg/internal/app/models"
)

// StudentRepository persists students and their course reference set.
//
// AddCourse and RemoveCourse are guarded set writes: changed is false when the student
// already was in the requested state. A missing student yields apperrors.ErrStudentNotFound.
type StudentRepository interface {
	Find(ctx context.Context, filter models.StudentFilter, offset uint64, limit int) ([]*models.Student, int64, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByIDs(ctx context.Context, ids []string) ([]*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateByID(ctx context.Context, id string, patch models.StudentPatch) (*models.Student, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	DeleteByID(ctx context.Context, id string) error

	AddCourse(ctx context.Context, studentID, courseID string) (bool, error)
	RemoveCourse(ctx context.Context, studentID, courseID string) (bool, error)
	FindIDsByCourse(ctx context.Context, courseID string) ([]string, error)
}

// CourseRepository persists courses and their student reference set.
type CourseRepository interface {
	Find(ctx context.Context, filter models.CourseFilter, offset uint64, limit int) ([]*models.Course, int64, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]*models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	UpdateByID(ctx context.Context, id string, patch models.CoursePatch) (*models.Course, error)
	DeleteByID(ctx context.Context, id string) error

	AddStudent(ctx context.Context, courseID, studentID string) (bool, error)
	RemoveStudent(ctx context.Context, courseID, studentID string) (bool, error)
	FindIDsByStudent(ctx context.Context, studentID string) ([]string, error)
}

// AdminRepository persists admin accounts.
type AdminRepository interface {
	Find(ctx context.Context, offset uint64, limit int) ([]*models.Admin, int64, error)
	FindByID(ctx context.Context, id string) (*models.Admin, error)
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error
	UpdateByID(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Count(ctx context.Context) (int64, error)

	// DeleteIfNotLast deletes the admin unless it is the only one left, in which
	// case it returns apperrors.ErrLastAdmin. The check and the delete are atomic.
	DeleteIfNotLast(ctx context.Context, id string) error
}

// Repositories holds all the repository instances of one backend
type Repositories struct {
	StudentRepository StudentRepository
	CourseRepository  CourseRepository
	AdminRepository   AdminRepository

	// Ping checks backend connectivity for the health endpoint
	Ping func(ctx context.Context) error
	// Close releases backend resources
	Close func(ctx context.Context) error
}
