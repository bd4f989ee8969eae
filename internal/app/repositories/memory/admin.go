package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/helpers"
)

// AdminRepository is the in-memory admin store
type AdminRepository struct {
	mu     sync.RWMutex
	admins map[string]*models.Admin
}

// NewAdminRepository creates an empty store
func NewAdminRepository() *AdminRepository {
	return &AdminRepository{admins: make(map[string]*models.Admin)}
}

func cloneAdmin(a *models.Admin) *models.Admin {
	c := *a
	return &c
}

func (r *AdminRepository) uniqueViolation(a *models.Admin) error {
	for _, existing := range r.admins {
		if existing.ID == a.ID {
			continue
		}
		if existing.Username == a.Username {
			return apperrors.ErrUsernameExists
		}
		if existing.Email == a.Email {
			return apperrors.ErrEmailExists
		}
	}
	return nil
}

func (r *AdminRepository) Find(ctx context.Context, offset uint64, limit int) ([]*models.Admin, int64, error) {
	if err := alive(ctx); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.Admin, 0, len(r.admins))
	for _, a := range r.admins {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	page := helpers.PaginateSlice(all, offset, limit)
	out := make([]*models.Admin, 0, len(page))
	for _, a := range page {
		out = append(out, cloneAdmin(a))
	}
	return out, int64(len(all)), nil
}

func (r *AdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.admins[id]
	if !ok {
		return nil, apperrors.ErrAdminNotFound
	}
	return cloneAdmin(a), nil
}

func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.admins {
		if a.Username == username {
			return cloneAdmin(a), nil
		}
	}
	return nil, apperrors.ErrAdminNotFound
}

func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if err := alive(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.admins[admin.ID]; exists {
		return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists, "admin id already exists")
	}
	if err := r.uniqueViolation(admin); err != nil {
		return err
	}
	r.admins[admin.ID] = cloneAdmin(admin)
	return nil
}

func (r *AdminRepository) UpdateByID(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error) {
	if err := alive(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.admins[id]
	if !ok {
		return nil, apperrors.ErrAdminNotFound
	}
	next := cloneAdmin(current)
	if patch.Username != nil {
		next.Username = *patch.Username
	}
	if patch.Email != nil {
		next.Email = *patch.Email
	}
	if patch.FirstName != nil {
		next.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		next.LastName = *patch.LastName
	}
	if err := r.uniqueViolation(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	r.admins[id] = next
	return cloneAdmin(next), nil
}

func (r *AdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if err := alive(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.admins[id]
	if !ok {
		return apperrors.ErrAdminNotFound
	}
	a.Password = passwordHash
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	if err := alive(ctx); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.admins)), nil
}

func (r *AdminRepository) DeleteIfNotLast(ctx context.Context, id string) error {
	if err := alive(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[id]; !ok {
		return apperrors.ErrAdminNotFound
	}
	if len(r.admins) <= 1 {
		return apperrors.ErrLastAdmin
	}
	delete(r.admins, id)
	return nil
}
