package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/db"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

const adminsTable = "admins"

var adminColumns = []string{
	"id", "username", "email", "password", "first_name", "last_name", "created_at", "updated_at",
}

// AdminRepository handles admin database operations
type AdminRepository struct {
	base
}

func scanAdmin(row pgx.Row) (*models.Admin, error) {
	a := &models.Admin{}
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Password, &a.FirstName, &a.LastName, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Find lists admins ordered by username
func (r *AdminRepository) Find(ctx context.Context, offset uint64, limit int) ([]*models.Admin, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	total, err := r.count(ctx, "count admins", r.sb.Select("COUNT(*)").From(adminsTable))
	if err != nil {
		return nil, 0, err
	}

	q := r.sb.Select(adminColumns...).From(adminsTable).OrderBy("username ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build find admins query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, translate("find admins", err, nil)
	}
	defer rows.Close()

	admins := []*models.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, 0, translate("find admins", err, nil)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate("find admins", err, nil)
	}
	return admins, total, nil
}

// FindByID retrieves an admin by ID
func (r *AdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	return r.findOne(ctx, "find admin by id", squirrel.Eq{"id": id})
}

// FindByUsername retrieves an admin by username
func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.findOne(ctx, "find admin by username", squirrel.Eq{"username": username})
}

func (r *AdminRepository) findOne(ctx context.Context, op string, where squirrel.Sqlizer) (*models.Admin, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Select(adminColumns...).From(adminsTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	a, err := scanAdmin(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translate(op, err, apperrors.ErrAdminNotFound)
	}
	return a, nil
}

// Create inserts an admin
func (r *AdminRepository) Create(ctx context.Context, a *models.Admin) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.sb.Insert(adminsTable).
		Columns(adminColumns...).
		Values(a.ID, a.Username, a.Email, a.Password, a.FirstName, a.LastName, a.CreatedAt, a.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create admin query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return translate("create admin", err, nil)
	}
	return nil
}

// UpdateByID merges the non-nil patch fields and returns the stored admin
func (r *AdminRepository) UpdateByID(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	set := map[string]interface{}{"updated_at": squirrel.Expr("NOW()")}
	putString(set, "username", patch.Username)
	putString(set, "email", patch.Email)
	putString(set, "first_name", patch.FirstName)
	putString(set, "last_name", patch.LastName)

	sql, args, err := r.sb.Update(adminsTable).
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(adminColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update admin query: %w", err)
	}
	a, err := scanAdmin(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translate("update admin", err, apperrors.ErrAdminNotFound)
	}
	return a, nil
}

// UpdatePassword stores a new password hash
func (r *AdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updatePassword(ctx, "update admin password", adminsTable, id, passwordHash, apperrors.ErrAdminNotFound)
}

// Count returns the number of admins
func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.count(ctx, "count admins", r.sb.Select("COUNT(*)").From(adminsTable))
}

// DeleteIfNotLast locks every admin row, then deletes id only if another admin remains.
// Two admins deleting each other concurrently serialize on the row locks.
func (r *AdminRepository) DeleteIfNotLast(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	lockSQL, lockArgs, err := r.sb.Select("id").From(adminsTable).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build lock admins query: %w", err)
	}
	deleteSQL, deleteArgs, err := r.sb.Delete(adminsTable).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete admin query: %w", err)
	}

	err = db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockSQL, lockArgs...)
		if err != nil {
			return err
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		if !slices.Contains(ids, id) {
			return apperrors.ErrAdminNotFound
		}
		if len(ids) <= 1 {
			return apperrors.ErrLastAdmin
		}
		_, err = tx.Exec(ctx, deleteSQL, deleteArgs...)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAdminNotFound) || errors.Is(err, apperrors.ErrLastAdmin) {
			return err
		}
		return translate("delete admin", err, apperrors.ErrAdminNotFound)
	}
	return nil
}
