package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

const studentsTable = "students"

var studentColumns = []string{
	"id", "student_number", "email", "password", "first_name", "last_name",
	"address", "city", "phone_number", "program", "course_ids", "created_at", "updated_at",
}

// StudentRepository handles student database operations
type StudentRepository struct {
	base
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	s := &models.Student{}
	err := row.Scan(
		&s.ID, &s.StudentNumber, &s.Email, &s.Password, &s.FirstName, &s.LastName,
		&s.Address, &s.City, &s.PhoneNumber, &s.Program, &s.CourseIDs, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *StudentRepository) collect(ctx context.Context, op string, q squirrel.SelectBuilder) ([]*models.Student, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(op, err, nil)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, translate(op, err, nil)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(op, err, nil)
	}
	return students, nil
}

func studentWhere(filter models.StudentFilter) squirrel.And {
	where := squirrel.And{}
	if filter.Program != "" {
		where = append(where, squirrel.Expr("LOWER(program) = LOWER(?)", filter.Program))
	}
	if filter.Email != "" {
		where = append(where, squirrel.Eq{"email": filter.Email})
	}
	if filter.CourseID != "" {
		where = append(where, squirrel.Expr("? = ANY(course_ids)", filter.CourseID))
	}
	return where
}

// Find lists students matching filter, ordered by name
func (r *StudentRepository) Find(ctx context.Context, filter models.StudentFilter, offset uint64, limit int) ([]*models.Student, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	where := studentWhere(filter)
	total, err := r.count(ctx, "count students", r.sb.Select("COUNT(*)").From(studentsTable).Where(where))
	if err != nil {
		return nil, 0, err
	}

	q := r.sb.Select(studentColumns...).
		From(studentsTable).
		Where(where).
		OrderBy("last_name ASC", "first_name ASC", "id ASC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	students, err := r.collect(ctx, "find students", q)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// FindByID retrieves a student by ID
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, "find student by id", squirrel.Eq{"id": id})
}

// FindByEmail retrieves a student by normalized email
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	return r.findOne(ctx, "find student by email", squirrel.Eq{"email": email})
}

func (r *StudentRepository) findOne(ctx context.Context, op string, where squirrel.Sqlizer) (*models.Student, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select(studentColumns...).From(studentsTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	s, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translate(op, err, apperrors.ErrStudentNotFound)
	}
	return s, nil
}

// FindByIDs retrieves the students with the given ids; unknown ids are skipped
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Student, error) {
	if len(ids) == 0 {
		return []*models.Student{}, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.collect(ctx, "find students by ids", r.sb.Select(studentColumns...).
		From(studentsTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("last_name ASC", "first_name ASC", "id ASC"))
}

// Create inserts a student. Unique violations map to DuplicateKey errors.
func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	courseIDs := s.CourseIDs
	if courseIDs == nil {
		courseIDs = []string{}
	}
	sql, args, err := r.sb.Insert(studentsTable).
		Columns(studentColumns...).
		Values(s.ID, s.StudentNumber, s.Email, s.Password, s.FirstName, s.LastName,
			s.Address, s.City, s.PhoneNumber, s.Program, courseIDs, s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create student query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return translate("create student", err, nil)
	}
	return nil
}

// UpdateByID merges the non-nil patch fields and returns the stored student
func (r *StudentRepository) UpdateByID(ctx context.Context, id string, patch models.StudentPatch) (*models.Student, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	set := map[string]interface{}{"updated_at": squirrel.Expr("NOW()")}
	putString(set, "student_number", patch.StudentNumber)
	putString(set, "email", patch.Email)
	putString(set, "first_name", patch.FirstName)
	putString(set, "last_name", patch.LastName)
	putString(set, "address", patch.Address)
	putString(set, "city", patch.City)
	putString(set, "phone_number", patch.PhoneNumber)
	putString(set, "program", patch.Program)

	sql, args, err := r.sb.Update(studentsTable).
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(studentColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update student query: %w", err)
	}
	s, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translate("update student", err, apperrors.ErrStudentNotFound)
	}
	return s, nil
}

// UpdatePassword stores a new password hash
func (r *StudentRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updatePassword(ctx, "update student password", studentsTable, id, passwordHash, apperrors.ErrStudentNotFound)
}

// DeleteByID removes the student row. Reference cleanup is done by the caller beforehand.
func (r *StudentRepository) DeleteByID(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "delete student", studentsTable, id, apperrors.ErrStudentNotFound)
}

// AddCourse appends courseID to the student's set unless already present
func (r *StudentRepository) AddCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	q := r.sb.Update(studentsTable).
		Set("course_ids", squirrel.Expr("array_append(course_ids, ?)", courseID)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": studentID}).
		Where(squirrel.Expr("NOT (? = ANY(course_ids))", courseID))
	return r.setUpdate(ctx, "add course to student", studentsTable, q, studentID, apperrors.ErrStudentNotFound)
}

// RemoveCourse removes courseID from the student's set if present
func (r *StudentRepository) RemoveCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	q := r.sb.Update(studentsTable).
		Set("course_ids", squirrel.Expr("array_remove(course_ids, ?)", courseID)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": studentID}).
		Where(squirrel.Expr("? = ANY(course_ids)", courseID))
	return r.setUpdate(ctx, "remove course from student", studentsTable, q, studentID, apperrors.ErrStudentNotFound)
}

// FindIDsByCourse returns the ids of students whose set contains courseID
func (r *StudentRepository) FindIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	return r.selectIDs(ctx, "find students by course", r.sb.Select("id").
		From(studentsTable).
		Where(squirrel.Expr("? = ANY(course_ids)", courseID)).
		OrderBy("id ASC"))
}
