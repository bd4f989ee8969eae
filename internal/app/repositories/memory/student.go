package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/helpers"
)

// StudentRepository is the in-memory student store
type StudentRepository struct {
	mu       sync.RWMutex
	students map[string]*models.Student
}

// NewStudentRepository creates an empty store
func NewStudentRepository() *StudentRepository {
	return &StudentRepository{students: make(map[string]*models.Student)}
}

func cloneStudent(s *models.Student) *models.Student {
	c := *s
	c.CourseIDs = slices.Clone(s.CourseIDs)
	if c.CourseIDs == nil {
		c.CourseIDs = []string{}
	}
	return &c
}

// uniqueViolation must be called with the lock held
func (r *StudentRepository) uniqueViolation(s *models.Student) error {
	for _, existing := range r.students {
		if existing.ID == s.ID {
			continue
		}
		if existing.Email == s.Email {
			return apperrors.ErrEmailExists
		}
		if existing.StudentNumber == s.StudentNumber {
			return apperrors.ErrStudentNumberUsed
		}
	}
	return nil
}

func (r *StudentRepository) Find(ctx context.Context, filter models.StudentFilter, offset uint64, limit int) ([]*models.Student, int64, error) {
	if err := alive(ctx); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*models.Student, 0, len(r.students))
	for _, s := range r.students {
		if filter.Program != "" && !strings.EqualFold(s.Program, filter.Program) {
			continue
		}
		if filter.Email != "" && s.Email != filter.Email {
			continue
		}
		if filter.CourseID != "" && !s.HasCourse(filter.CourseID) {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})

	page := helpers.PaginateSlice(matched, offset, limit)
	out := make([]*models.Student, 0, len(page))
	for _, s := range page {
		out = append(out, cloneStudent(s))
	}
	return out, int64(len(matched)), nil
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return cloneStudent(s), nil
}

func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Student, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.students[id]; ok {
			out = append(out, cloneStudent(s))
		}
	}
	return out, nil
}

func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.students {
		if s.Email == email {
			return cloneStudent(s), nil
		}
	}
	return nil, apperrors.ErrStudentNotFound
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if err := alive(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.students[student.ID]; exists {
		return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists, "student id already exists")
	}
	if err := r.uniqueViolation(student); err != nil {
		return err
	}
	r.students[student.ID] = cloneStudent(student)
	return nil
}

func (r *StudentRepository) UpdateByID(ctx context.Context, id string, patch models.StudentPatch) (*models.Student, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}

	next := cloneStudent(current)
	applyStudentPatch(next, patch)
	if err := r.uniqueViolation(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	r.students[id] = next
	return cloneStudent(next), nil
}

func applyStudentPatch(s *models.Student, p models.StudentPatch) {
	if p.StudentNumber != nil {
		s.StudentNumber = *p.StudentNumber
	}
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.FirstName != nil {
		s.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		s.LastName = *p.LastName
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.City != nil {
		s.City = *p.City
	}
	if p.PhoneNumber != nil {
		s.PhoneNumber = *p.PhoneNumber
	}
	if p.Program != nil {
		s.Program = *p.Program
	}
}

func (r *StudentRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if err := alive(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[id]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	s.Password = passwordHash
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *StudentRepository) DeleteByID(ctx context.Context, id string) error {
	if err := alive(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[id]; !ok {
		return apperrors.ErrStudentNotFound
	}
	delete(r.students, id)
	return nil
}

func (r *StudentRepository) AddCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	if err := alive(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[studentID]
	if !ok {
		return false, apperrors.ErrStudentNotFound
	}
	var changed bool
	s.CourseIDs, changed = addID(s.CourseIDs, courseID)
	if changed {
		s.UpdatedAt = time.Now().UTC()
	}
	return changed, nil
}

func (r *StudentRepository) RemoveCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	if err := alive(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[studentID]
	if !ok {
		return false, apperrors.ErrStudentNotFound
	}
	var changed bool
	s.CourseIDs, changed = removeID(s.CourseIDs, courseID)
	if changed {
		s.UpdatedAt = time.Now().UTC()
	}
	return changed, nil
}

func (r *StudentRepository) FindIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := []string{}
	for id, s := range r.students {
		if s.HasCourse(courseID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
