// Package postgres implements the repositories on PostgreSQL with pgx and squirrel.
// Reference sets are TEXT[] columns changed with guarded array_append / array_remove.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/dberrors"
)

// unique constraint name -> domain error
var constraintErrors = map[string]error{
	"students_student_number_key": apperrors.ErrStudentNumberUsed,
	"students_email_key":          apperrors.ErrEmailExists,
	"courses_course_code_key":     apperrors.ErrCourseCodeExists,
	"admins_username_key":         apperrors.ErrUsernameExists,
	"admins_email_key":            apperrors.ErrEmailExists,
}

// NewRepositories builds all repositories on one pool. Every call runs under opTimeout.
func NewRepositories(pool *pgxpool.Pool, opTimeout time.Duration) *repositories.Repositories {
	b := base{
		db:      pool,
		sb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		timeout: opTimeout,
	}
	return &repositories.Repositories{
		StudentRepository: &StudentRepository{base: b},
		CourseRepository:  &CourseRepository{base: b},
		AdminRepository:   &AdminRepository{base: b},
		Ping:              pool.Ping,
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}
}

type base struct {
	db      *pgxpool.Pool
	sb      squirrel.StatementBuilderType
	timeout time.Duration
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// translate maps driver errors onto the apperrors taxonomy
func translate(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	if constraint, ok := dberrors.UniqueViolationConstraint(err); ok {
		if domainErr, known := constraintErrors[constraint]; known {
			return domainErr
		}
		return fmt.Errorf("%s: %w", op, apperrors.ErrResourceAlreadyExists)
	}
	return dberrors.Wrap(op, err)
}

// exists reports whether a row with id is present in table
func (b base) exists(ctx context.Context, table, id string) (bool, error) {
	sql, args, err := b.sb.Select("1").
		From(table).
		Where(squirrel.Eq{"id": id}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}
	var found bool
	if err := b.db.QueryRow(ctx, sql, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

// setUpdate runs a guarded reference-set UPDATE. Zero affected rows means either the
// row was already in the desired state or it does not exist; a second lookup decides.
func (b base) setUpdate(ctx context.Context, op, table string, q squirrel.UpdateBuilder, id string, notFound error) (bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	tag, err := b.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, translate(op, err, notFound)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	found, err := b.exists(ctx, table, id)
	if err != nil {
		return false, translate(op, err, notFound)
	}
	if !found {
		return false, notFound
	}
	return false, nil
}

func (b base) selectIDs(ctx context.Context, op string, q squirrel.SelectBuilder) ([]string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(op, err, nil)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translate(op, err, nil)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (b base) count(ctx context.Context, op string, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build %s count query: %w", op, err)
	}
	var total int64
	if err := b.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, translate(op, err, nil)
	}
	return total, nil
}

func (b base) deleteByID(ctx context.Context, op, table, id string, notFound error) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	sql, args, err := b.sb.Delete(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", op, err)
	}
	tag, err := b.db.Exec(ctx, sql, args...)
	if err != nil {
		return translate(op, err, notFound)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func (b base) updatePassword(ctx context.Context, op, table, id, hash string, notFound error) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	sql, args, err := b.sb.Update(table).
		Set("password", hash).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", op, err)
	}
	tag, err := b.db.Exec(ctx, sql, args...)
	if err != nil {
		return translate(op, err, notFound)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
