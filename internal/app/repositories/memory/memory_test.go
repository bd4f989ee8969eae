package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

func seedStudent(t *testing.T, repo *StudentRepository, id, number, email, last string) {
	t.Helper()
	err := repo.Create(context.Background(), &models.Student{
		ID:            id,
		StudentNumber: number,
		Email:         email,
		FirstName:     "Test",
		LastName:      last,
		Program:       "Software Engineering",
	})
	if err != nil {
		t.Fatalf("create student %s: %v", id, err)
	}
}

func TestStudentUniqueConstraints(t *testing.T) {
	repo := NewStudentRepository()
	seedStudent(t, repo, "s1", "100001", "a@school.edu", "Adams")

	err := repo.Create(context.Background(), &models.Student{ID: "s2", StudentNumber: "100002", Email: "a@school.edu"})
	if !errors.Is(err, apperrors.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	err = repo.Create(context.Background(), &models.Student{ID: "s3", StudentNumber: "100001", Email: "b@school.edu"})
	if !errors.Is(err, apperrors.ErrStudentNumberUsed) {
		t.Fatalf("expected ErrStudentNumberUsed, got %v", err)
	}

	seedStudent(t, repo, "s4", "100004", "c@school.edu", "Baker")
	email := "a@school.edu"
	if _, err := repo.UpdateByID(context.Background(), "s4", models.StudentPatch{Email: &email}); !errors.Is(err, apperrors.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists on update, got %v", err)
	}
}

func TestStudentCourseSetIsGuarded(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository()
	seedStudent(t, repo, "s1", "100001", "a@school.edu", "Adams")

	changed, err := repo.AddCourse(ctx, "s1", "c1")
	if err != nil || !changed {
		t.Fatalf("first add: changed=%v err=%v", changed, err)
	}
	changed, err = repo.AddCourse(ctx, "s1", "c1")
	if err != nil || changed {
		t.Fatalf("second add should be a no-op: changed=%v err=%v", changed, err)
	}

	s, _ := repo.FindByID(ctx, "s1")
	if len(s.CourseIDs) != 1 {
		t.Fatalf("expected one reference, got %v", s.CourseIDs)
	}

	changed, err = repo.RemoveCourse(ctx, "s1", "c1")
	if err != nil || !changed {
		t.Fatalf("remove: changed=%v err=%v", changed, err)
	}
	changed, err = repo.RemoveCourse(ctx, "s1", "c1")
	if err != nil || changed {
		t.Fatalf("second remove should be a no-op: changed=%v err=%v", changed, err)
	}

	if _, err := repo.AddCourse(ctx, "missing", "c1"); !errors.Is(err, apperrors.ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestConcurrentAddStudentKeepsOneReference(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository()
	if err := repo.Create(ctx, &models.Course{ID: "c1", CourseCode: "COMP308"}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	changes := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := repo.AddStudent(ctx, "c1", "s1")
			if err != nil {
				t.Error(err)
				return
			}
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	c, _ := repo.FindByID(ctx, "c1")
	if len(c.StudentIDs) != 1 || changes != 1 {
		t.Fatalf("expected exactly one reference and one change, got %v and %d", c.StudentIDs, changes)
	}
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository()
	_ = repo.Create(ctx, &models.Course{ID: "c1", CourseCode: "COMP308", StudentIDs: []string{"s1"}})

	c, _ := repo.FindByID(ctx, "c1")
	c.StudentIDs[0] = "tampered"

	again, _ := repo.FindByID(ctx, "c1")
	if again.StudentIDs[0] != "s1" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestFindFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository()
	seedStudent(t, repo, "s1", "100001", "a@school.edu", "Carter")
	seedStudent(t, repo, "s2", "100002", "b@school.edu", "Adams")
	seedStudent(t, repo, "s3", "100003", "c@school.edu", "Baker")
	_, _ = repo.AddCourse(ctx, "s2", "c1")
	_, _ = repo.AddCourse(ctx, "s3", "c1")

	page, total, err := repo.Find(ctx, models.StudentFilter{}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 1 || page[0].LastName != "Baker" {
		t.Fatalf("unexpected page: total=%d page=%v", total, page)
	}

	enrolled, total, _ := repo.Find(ctx, models.StudentFilter{CourseID: "c1"}, 0, 10)
	if total != 2 || len(enrolled) != 2 {
		t.Fatalf("expected two enrolled students, got %d", total)
	}

	ids, _ := repo.FindIDsByCourse(ctx, "c1")
	if len(ids) != 2 {
		t.Fatalf("expected reverse lookup of two ids, got %v", ids)
	}

	byEmail, _, _ := repo.Find(ctx, models.StudentFilter{Email: "a@school.edu"}, 0, 10)
	if len(byEmail) != 1 || byEmail[0].ID != "s1" {
		t.Fatalf("email filter returned %v", byEmail)
	}
}

func TestCourseSearchAndCode(t *testing.T) {
	ctx := context.Background()
	repo := NewCourseRepository()
	_ = repo.Create(ctx, &models.Course{ID: "c1", CourseCode: "COMP308", CourseName: "Emerging Technologies", Semester: "Fall 2026"})
	_ = repo.Create(ctx, &models.Course{ID: "c2", CourseCode: "MATH101", CourseName: "Calculus", Semester: "Winter 2027"})

	if err := repo.Create(ctx, &models.Course{ID: "c3", CourseCode: "COMP308"}); !errors.Is(err, apperrors.ErrCourseCodeExists) {
		t.Fatalf("expected ErrCourseCodeExists, got %v", err)
	}

	found, total, _ := repo.Find(ctx, models.CourseFilter{Search: "emerging"}, 0, 10)
	if total != 1 || found[0].ID != "c1" {
		t.Fatalf("search returned %v", found)
	}
	found, _, _ = repo.Find(ctx, models.CourseFilter{Semester: "winter 2027"}, 0, 10)
	if len(found) != 1 || found[0].ID != "c2" {
		t.Fatalf("semester filter returned %v", found)
	}

	c, err := repo.FindByCode(ctx, "MATH101")
	if err != nil || c.ID != "c2" {
		t.Fatalf("FindByCode: %v %v", c, err)
	}
	if _, err := repo.FindByCode(ctx, "NONE100"); !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestAdminDeleteIfNotLast(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository()
	_ = repo.Create(ctx, &models.Admin{ID: "a1", Username: "root", Email: "root@school.edu"})

	if err := repo.DeleteIfNotLast(ctx, "a1"); !errors.Is(err, apperrors.ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}

	_ = repo.Create(ctx, &models.Admin{ID: "a2", Username: "ops", Email: "ops@school.edu"})
	if err := repo.DeleteIfNotLast(ctx, "a1"); err != nil {
		t.Fatalf("delete with two admins: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("expected one admin left, got %d", n)
	}
	if err := repo.DeleteIfNotLast(ctx, "missing"); !errors.Is(err, apperrors.ErrAdminNotFound) {
		t.Fatalf("expected ErrAdminNotFound, got %v", err)
	}
}

func TestExpiredContextIsStoreUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	repos := NewRepositories()
	_, err := repos.StudentRepository.FindByID(ctx, "s1")
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := repos.Ping(ctx); !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("expected ping to fail with ErrStoreUnavailable, got %v", err)
	}
	if err := repos.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
