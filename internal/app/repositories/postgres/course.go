package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

const coursesTable = "courses"

var courseColumns = []string{
	"id", "course_code", "course_name", "section", "semester", "student_ids", "created_at", "updated_at",
}

// CourseRepository handles course database operations
type CourseRepository struct {
	base
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	c := &models.Course{}
	err := row.Scan(&c.ID, &c.CourseCode, &c.CourseName, &c.Section, &c.Semester, &c.StudentIDs, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CourseRepository) collect(ctx context.Context, op string, q squirrel.SelectBuilder) ([]*models.Course, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(op, err, nil)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, translate(op, err, nil)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(op, err, nil)
	}
	return courses, nil
}

func courseWhere(filter models.CourseFilter) squirrel.And {
	where := squirrel.And{}
	if filter.Semester != "" {
		where = append(where, squirrel.Expr("LOWER(semester) = LOWER(?)", filter.Semester))
	}
	if filter.StudentID != "" {
		where = append(where, squirrel.Expr("? = ANY(student_ids)", filter.StudentID))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"course_code": pattern},
			squirrel.ILike{"course_name": pattern},
		})
	}
	return where
}

// Find lists courses matching filter, ordered by course code
func (r *CourseRepository) Find(ctx context.Context, filter models.CourseFilter, offset uint64, limit int) ([]*models.Course, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	where := courseWhere(filter)
	total, err := r.count(ctx, "count courses", r.sb.Select("COUNT(*)").From(coursesTable).Where(where))
	if err != nil {
		return nil, 0, err
	}

	q := r.sb.Select(courseColumns...).
		From(coursesTable).
		Where(where).
		OrderBy("course_code ASC", "id ASC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	courses, err := r.collect(ctx, "find courses", q)
	if err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// FindByID retrieves a course by ID
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return r.findOne(ctx, "find course by id", squirrel.Eq{"id": id})
}

// FindByCode retrieves a course by its normalized code
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	return r.findOne(ctx, "find course by code", squirrel.Eq{"course_code": code})
}

func (r *CourseRepository) findOne(ctx context.Context, op string, where squirrel.Sqlizer) (*models.Course, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select(courseColumns...).From(coursesTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translate(op, err, apperrors.ErrCourseNotFound)
	}
	return c, nil
}

// FindByIDs retrieves the courses with the given ids; unknown ids are skipped
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Course, error) {
	if len(ids) == 0 {
		return []*models.Course{}, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.collect(ctx, "find courses by ids", r.sb.Select(courseColumns...).
		From(coursesTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("course_code ASC", "id ASC"))
}

// Create inserts a course
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	studentIDs := c.StudentIDs
	if studentIDs == nil {
		studentIDs = []string{}
	}
	sql, args, err := r.sb.Insert(coursesTable).
		Columns(courseColumns...).
		Values(c.ID, c.CourseCode, c.CourseName, c.Section, c.Semester, studentIDs, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return translate("create course", err, nil)
	}
	return nil
}

// UpdateByID merges the non-nil patch fields and returns the stored course
func (r *CourseRepository) UpdateByID(ctx context.Context, id string, patch models.CoursePatch) (*models.Course, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	set := map[string]interface{}{"updated_at": squirrel.Expr("NOW()")}
	putString(set, "course_code", patch.CourseCode)
	putString(set, "course_name", patch.CourseName)
	putString(set, "section", patch.Section)
	putString(set, "semester", patch.Semester)

	sql, args, err := r.sb.Update(coursesTable).
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(courseColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update course query: %w", err)
	}
	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translate("update course", err, apperrors.ErrCourseNotFound)
	}
	return c, nil
}

// DeleteByID removes the course row
func (r *CourseRepository) DeleteByID(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "delete course", coursesTable, id, apperrors.ErrCourseNotFound)
}

// AddStudent appends studentID to the course's set unless already present
func (r *CourseRepository) AddStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	q := r.sb.Update(coursesTable).
		Set("student_ids", squirrel.Expr("array_append(student_ids, ?)", studentID)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": courseID}).
		Where(squirrel.Expr("NOT (? = ANY(student_ids))", studentID))
	return r.setUpdate(ctx, "add student to course", coursesTable, q, courseID, apperrors.ErrCourseNotFound)
}

// RemoveStudent removes studentID from the course's set if present
func (r *CourseRepository) RemoveStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	q := r.sb.Update(coursesTable).
		Set("student_ids", squirrel.Expr("array_remove(student_ids, ?)", studentID)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": courseID}).
		Where(squirrel.Expr("? = ANY(student_ids)", studentID))
	return r.setUpdate(ctx, "remove student from course", coursesTable, q, courseID, apperrors.ErrCourseNotFound)
}

// FindIDsByStudent returns the ids of courses whose set contains studentID
func (r *CourseRepository) FindIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	return r.selectIDs(ctx, "find courses by student", r.sb.Select("id").
		From(coursesTable).
		Where(squirrel.Expr("? = ANY(student_ids)", studentID)).
		OrderBy("id ASC"))
}
