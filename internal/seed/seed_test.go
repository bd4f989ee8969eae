package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/repositories/memory"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
)

func TestEnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewPasswordHasher(4)
	account := AdminAccount{Username: " root ", Email: "Root@School.edu", Password: "Secret123"}

	repos := memory.NewRepositories()
	created, err := EnsureBootstrapAdmin(ctx, repos.AdminRepository, hasher, account, zerolog.Nop())
	if err != nil || !created {
		t.Fatalf("first run: created=%v err=%v", created, err)
	}

	admin, err := repos.AdminRepository.FindByUsername(ctx, "root")
	if err != nil {
		t.Fatal(err)
	}
	if admin.Email != "root@school.edu" || admin.FirstName != "System" || !hasher.VerifyPassword(admin.Password, "Secret123") {
		t.Fatalf("unexpected admin %+v", admin)
	}

	created, err = EnsureBootstrapAdmin(ctx, repos.AdminRepository, hasher, account, zerolog.Nop())
	if err != nil || created {
		t.Fatalf("second run: created=%v err=%v", created, err)
	}
	if n, _ := repos.AdminRepository.Count(ctx); n != 1 {
		t.Fatalf("admin count = %d", n)
	}
}

func TestEnsureBootstrapAdminSkipsOrRejects(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewPasswordHasher(4)

	repos := memory.NewRepositories()
	created, err := EnsureBootstrapAdmin(ctx, repos.AdminRepository, hasher, AdminAccount{}, zerolog.Nop())
	if err != nil || created {
		t.Fatalf("unconfigured: created=%v err=%v", created, err)
	}

	_, err = EnsureBootstrapAdmin(ctx, repos.AdminRepository, hasher, AdminAccount{Username: "root", Password: "weak"}, zerolog.Nop())
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("weak password: got %v", err)
	}

	if err := repos.AdminRepository.Create(ctx, &models.Admin{ID: "a1", Username: "existing", Email: "e@school.edu"}); err != nil {
		t.Fatal(err)
	}
	created, err = EnsureBootstrapAdmin(ctx, repos.AdminRepository, hasher, AdminAccount{Username: "root", Password: "Secret123"}, zerolog.Nop())
	if err != nil || created {
		t.Fatalf("existing admin: created=%v err=%v", created, err)
	}
}
