// Package memory implements the repositories on mutex-guarded maps. It backs local runs
// with database.driver=memory and the service tests.
package memory

import (
	"context"
	"slices"

	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/dberrors"
)

// NewRepositories returns an empty in-memory backend
func NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		StudentRepository: NewStudentRepository(),
		CourseRepository:  NewCourseRepository(),
		AdminRepository:   NewAdminRepository(),
		Ping:              alive,
		Close:             func(context.Context) error { return nil },
	}
}

func addID(ids []string, id string) ([]string, bool) {
	if slices.Contains(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

func removeID(ids []string, id string) ([]string, bool) {
	idx := slices.Index(ids, id)
	if idx < 0 {
		return ids, false
	}
	return slices.Delete(ids, idx, idx+1), true
}

// alive reports an expired ctx the way the database backends do
func alive(ctx context.Context) error {
	return dberrors.Wrap("memory store", ctx.Err())
}
