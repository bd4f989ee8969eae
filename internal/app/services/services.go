// Package services holds the business operations. Every operation that acts for a
// caller takes the caller's claims explicitly and consults the authorization guard.
package services

import (
	"github.com/rs/zerolog"
	appauth "github.com/yigit/coursereg/internal/app/auth"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/auth"
)

// Services bundles every service built on one set of repositories
type Services struct {
	Auth       *AuthService
	Student    StudentService
	Course     CourseService
	Admin      AdminService
	Enrollment EnrollmentService
	Reconciler *Reconciler
}

// Deps carries what New needs
type Deps struct {
	Repos      *repositories.Repositories
	JWT        *auth.JWTService
	Hasher     *auth.PasswordHasher
	Repairs    RepairQueue
	Enrollment EnrollmentConfig
	Logger     zerolog.Logger
}

// New wires all services together
func New(d Deps) *Services {
	guard := appauth.NewGuard()
	repairs := d.Repairs
	if repairs == nil {
		repairs = NewLoggingRepairQueue(d.Logger)
	}

	enrollment := NewEnrollmentService(d.Repos.StudentRepository, d.Repos.CourseRepository, guard, repairs, d.Enrollment, d.Logger)
	student := NewStudentService(d.Repos.StudentRepository, d.Repos.CourseRepository, enrollment, guard, d.Hasher, d.Logger)

	return &Services{
		Auth:       NewAuthService(d.Repos.StudentRepository, d.Repos.AdminRepository, student, d.JWT, d.Hasher, guard, d.Logger),
		Student:    student,
		Course:     NewCourseService(d.Repos.CourseRepository, d.Repos.StudentRepository, enrollment, guard, d.Logger),
		Admin:      NewAdminService(d.Repos.AdminRepository, guard, d.Hasher, d.Logger),
		Enrollment: enrollment,
		Reconciler: NewReconciler(d.Repos.StudentRepository, d.Repos.CourseRepository, guard, d.Logger),
	}
}
