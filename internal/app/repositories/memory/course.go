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

// CourseRepository is the in-memory course store
type CourseRepository struct {
	mu      sync.RWMutex
	courses map[string]*models.Course
}

// NewCourseRepository creates an empty store
func NewCourseRepository() *CourseRepository {
	return &CourseRepository{courses: make(map[string]*models.Course)}
}

func cloneCourse(c *models.Course) *models.Course {
	out := *c
	out.StudentIDs = slices.Clone(c.StudentIDs)
	if out.StudentIDs == nil {
		out.StudentIDs = []string{}
	}
	return &out
}

func (r *CourseRepository) codeTaken(code, exceptID string) bool {
	for _, c := range r.courses {
		if c.ID != exceptID && c.CourseCode == code {
			return true
		}
	}
	return false
}

func (r *CourseRepository) Find(ctx context.Context, filter models.CourseFilter, offset uint64, limit int) ([]*models.Course, int64, error) {
	if err := alive(ctx); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	matched := make([]*models.Course, 0, len(r.courses))
	for _, c := range r.courses {
		if filter.Semester != "" && !strings.EqualFold(c.Semester, filter.Semester) {
			continue
		}
		if filter.StudentID != "" && !c.HasStudent(filter.StudentID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.CourseCode), search) &&
			!strings.Contains(strings.ToLower(c.CourseName), search) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		return a.ID < b.ID
	})

	page := helpers.PaginateSlice(matched, offset, limit)
	out := make([]*models.Course, 0, len(page))
	for _, c := range page {
		out = append(out, cloneCourse(c))
	}
	return out, int64(len(matched)), nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	return cloneCourse(c), nil
}

func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Course, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.courses[id]; ok {
			out = append(out, cloneCourse(c))
		}
	}
	return out, nil
}

func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.courses {
		if c.CourseCode == code {
			return cloneCourse(c), nil
		}
	}
	return nil, apperrors.ErrCourseNotFound
}

func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if err := alive(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.courses[course.ID]; exists {
		return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists, "course id already exists")
	}
	if r.codeTaken(course.CourseCode, course.ID) {
		return apperrors.ErrCourseCodeExists
	}
	r.courses[course.ID] = cloneCourse(course)
	return nil
}

func (r *CourseRepository) UpdateByID(ctx context.Context, id string, patch models.CoursePatch) (*models.Course, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	next := cloneCourse(current)
	if patch.CourseCode != nil {
		next.CourseCode = *patch.CourseCode
	}
	if patch.CourseName != nil {
		next.CourseName = *patch.CourseName
	}
	if patch.Section != nil {
		next.Section = *patch.Section
	}
	if patch.Semester != nil {
		next.Semester = *patch.Semester
	}
	if r.codeTaken(next.CourseCode, id) {
		return nil, apperrors.ErrCourseCodeExists
	}
	next.UpdatedAt = time.Now().UTC()
	r.courses[id] = next
	return cloneCourse(next), nil
}

func (r *CourseRepository) DeleteByID(ctx context.Context, id string) error {
	if err := alive(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[id]; !ok {
		return apperrors.ErrCourseNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *CourseRepository) AddStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	if err := alive(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.courses[courseID]
	if !ok {
		return false, apperrors.ErrCourseNotFound
	}
	var changed bool
	c.StudentIDs, changed = addID(c.StudentIDs, studentID)
	if changed {
		c.UpdatedAt = time.Now().UTC()
	}
	return changed, nil
}

func (r *CourseRepository) RemoveStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	if err := alive(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.courses[courseID]
	if !ok {
		return false, apperrors.ErrCourseNotFound
	}
	var changed bool
	c.StudentIDs, changed = removeID(c.StudentIDs, studentID)
	if changed {
		c.UpdatedAt = time.Now().UTC()
	}
	return changed, nil
}

func (r *CourseRepository) FindIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := []string{}
	for id, c := range r.courses {
		if c.HasStudent(studentID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
