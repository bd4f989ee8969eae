package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
)

func registerRequest() *dto.RegisterStudentRequest {
	return &dto.RegisterStudentRequest{
		StudentNumber: "30012345",
		Email:         "  Jane@School.EDU ",
		Password:      "Secret123",
		FirstName:     "Jane",
		LastName:      "Doe",
		Program:       "Software Engineering",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.services.Auth.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.Role != string(models.RoleStudent) || resp.Token.AccessToken == "" {
		t.Fatalf("unexpected register response %+v", resp)
	}
	user := resp.User.(dto.StudentResponse)
	if user.Email != "jane@school.edu" {
		t.Fatalf("email not normalized: %q", user.Email)
	}

	stored, _ := env.repos.StudentRepository.FindByID(ctx, user.ID)
	if stored.Password == "Secret123" {
		t.Fatal("password stored in clear text")
	}

	login, err := env.services.Auth.Login(ctx, &dto.LoginRequest{Email: "JANE@school.edu", Password: "Secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := env.jwt.VerifyToken(login.Token.AccessToken)
	if err != nil || claims.UserID != user.ID || claims.Role != models.RoleStudent {
		t.Fatalf("token does not identify the student: %+v %v", claims, err)
	}

	_, err = env.services.Auth.Login(ctx, &dto.LoginRequest{Email: "jane@school.edu", Password: "wrong-pass1"})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	_, err = env.services.Auth.Login(ctx, &dto.LoginRequest{Email: "nobody@school.edu", Password: "Secret123"})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like a bad password, got %v", err)
	}

	_, err = env.services.Auth.Register(ctx, registerRequest())
	assertKind(t, err, apperrors.KindDuplicateKey)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := map[string]func(r *dto.RegisterStudentRequest){
		"bad email":          func(r *dto.RegisterStudentRequest) { r.Email = "jane" },
		"bad student number": func(r *dto.RegisterStudentRequest) { r.StudentNumber = "12ab" },
		"weak password":      func(r *dto.RegisterStudentRequest) { r.Password = "password" },
		"blank first name":   func(r *dto.RegisterStudentRequest) { r.FirstName = "   " },
		"blank program":      func(r *dto.RegisterStudentRequest) { r.Program = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := registerRequest()
			mutate(req)
			_, err := env.services.Auth.Register(context.Background(), req)
			assertKind(t, err, apperrors.KindValidation)
		})
	}
}

func TestAdminLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.services.Auth.AdminLogin(ctx, &dto.AdminLoginRequest{Username: "root", Password: "Secret123"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if resp.Role != string(models.RoleAdmin) {
		t.Fatalf("role = %q", resp.Role)
	}

	me, err := env.services.Auth.Me(ctx, env.admin)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.User.(dto.AdminResponse).Username != "root" {
		t.Fatalf("unexpected me %+v", me)
	}

	_, err = env.services.Auth.Me(ctx, nil)
	assertKind(t, err, apperrors.KindUnauthenticated)

	ghost := &auth.Claims{UserID: "3f0c6a4e-1111-4111-8111-111111111111", Role: models.RoleStudent}
	_, err = env.services.Auth.Me(ctx, ghost)
	assertKind(t, err, apperrors.KindUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp, err := env.services.Auth.Register(ctx, registerRequest())
	if err != nil {
		t.Fatal(err)
	}
	claims := &auth.Claims{UserID: resp.User.(dto.StudentResponse).ID, Role: models.RoleStudent}

	err = env.services.Auth.ChangePassword(ctx, claims, &dto.ChangePasswordRequest{CurrentPassword: "nope1234", NewPassword: "Better456"})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	err = env.services.Auth.ChangePassword(ctx, claims, &dto.ChangePasswordRequest{CurrentPassword: "Secret123", NewPassword: "short"})
	assertKind(t, err, apperrors.KindValidation)

	if err := env.services.Auth.ChangePassword(ctx, claims, &dto.ChangePasswordRequest{CurrentPassword: "Secret123", NewPassword: "Better456"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.services.Auth.Login(ctx, &dto.LoginRequest{Email: "jane@school.edu", Password: "Better456"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	err = env.services.Auth.ChangePassword(ctx, nil, &dto.ChangePasswordRequest{CurrentPassword: "a", NewPassword: "Better456"})
	assertKind(t, err, apperrors.KindUnauthenticated)

	if err := env.services.Auth.ChangePassword(ctx, env.admin, &dto.ChangePasswordRequest{CurrentPassword: "Secret123", NewPassword: "Admin4567"}); err != nil {
		t.Fatalf("admin change password: %v", err)
	}
}

func TestStudentProfileAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	me, claims := env.seedStudent(t)
	other, _ := env.seedStudent(t)

	if _, err := env.services.Student.GetByID(ctx, claims, me.ID); err != nil {
		t.Fatalf("own profile: %v", err)
	}
	_, err := env.services.Student.GetByID(ctx, claims, other.ID)
	assertKind(t, err, apperrors.KindForbidden)

	_, _, err = env.services.Student.List(ctx, claims, models.StudentFilter{}, 1, 10)
	assertKind(t, err, apperrors.KindForbidden)

	list, total, err := env.services.Student.List(ctx, env.admin, models.StudentFilter{}, 1, 10)
	if err != nil || total != 2 || len(list) != 2 {
		t.Fatalf("admin list: %d %v", total, err)
	}

	program := "  Data Science "
	updated, err := env.services.Student.Update(ctx, claims, me.ID, models.StudentPatch{Program: &program})
	if err != nil || updated.Program != "Data Science" {
		t.Fatalf("update: %+v %v", updated, err)
	}
	_, err = env.services.Student.Update(ctx, claims, other.ID, models.StudentPatch{Program: &program})
	assertKind(t, err, apperrors.KindForbidden)
	_, err = env.services.Student.Update(ctx, claims, me.ID, models.StudentPatch{})
	assertKind(t, err, apperrors.KindValidation)

	_, err = env.services.Student.Create(ctx, claims, registerRequest())
	assertKind(t, err, apperrors.KindForbidden)
	if _, err := env.services.Student.Create(ctx, env.admin, registerRequest()); err != nil {
		t.Fatalf("admin create: %v", err)
	}
}

func TestStudentCoursesAndRoster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student, claims := env.seedStudent(t)
	course := env.seedCourse(t)
	if _, err := env.services.Enrollment.Enroll(ctx, claims, student.ID, course.ID); err != nil {
		t.Fatal(err)
	}

	courses, err := env.services.Student.Courses(ctx, claims, student.ID)
	if err != nil || len(courses) != 1 || courses[0].ID != course.ID {
		t.Fatalf("courses: %v %v", courses, err)
	}

	_, err = env.services.Course.Roster(ctx, claims, course.ID)
	assertKind(t, err, apperrors.KindForbidden)
	roster, err := env.services.Course.Roster(ctx, env.admin, course.ID)
	if err != nil || len(roster) != 1 || roster[0].ID != student.ID {
		t.Fatalf("roster: %v %v", roster, err)
	}

	list, _, err := env.services.Course.List(ctx, claims, models.CourseFilter{StudentID: student.ID}, 1, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("own course list: %v %v", list, err)
	}
	other, _ := env.seedStudent(t)
	_, _, err = env.services.Course.List(ctx, claims, models.CourseFilter{StudentID: other.ID}, 1, 10)
	assertKind(t, err, apperrors.KindForbidden)
}

func TestCourseManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, claims := env.seedStudent(t)

	req := &dto.CreateCourseRequest{CourseCode: " comp308 ", CourseName: "Emerging Technologies", Section: "001", Semester: "Fall 2026"}
	_, err := env.services.Course.Create(ctx, claims, req)
	assertKind(t, err, apperrors.KindForbidden)

	course, err := env.services.Course.Create(ctx, env.admin, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if course.CourseCode != "COMP308" {
		t.Fatalf("code not normalized: %q", course.CourseCode)
	}
	_, err = env.services.Course.Create(ctx, env.admin, req)
	assertKind(t, err, apperrors.KindDuplicateKey)

	found, err := env.services.Course.GetByCode(ctx, claims, "comp308")
	if err != nil || found.ID != course.ID {
		t.Fatalf("get by code: %v %v", found, err)
	}
	_, err = env.services.Course.GetByCode(ctx, claims, "!!")
	assertKind(t, err, apperrors.KindValidation)

	bad := "x"
	_, err = env.services.Course.Update(ctx, env.admin, course.ID, models.CoursePatch{CourseCode: &bad})
	assertKind(t, err, apperrors.KindValidation)

	name := "Emerging Tech"
	updated, err := env.services.Course.Update(ctx, env.admin, course.ID, models.CoursePatch{CourseName: &name})
	if err != nil || updated.CourseName != name {
		t.Fatalf("update: %v %v", updated, err)
	}

	_, err = env.services.Course.GetByID(ctx, claims, "3f0c6a4e-2222-4222-8222-222222222222")
	assertKind(t, err, apperrors.KindNotFound)
}

func TestAdminLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.services.Admin.Create(ctx, env.admin, &dto.CreateAdminRequest{
		Username:  "registrar",
		Email:     "Registrar@School.edu",
		Password:  "Secret123",
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if created.Email != "registrar@school.edu" {
		t.Fatalf("email not normalized: %q", created.Email)
	}

	_, claims := env.seedStudent(t)
	_, err = env.services.Admin.Create(ctx, claims, &dto.CreateAdminRequest{})
	assertKind(t, err, apperrors.KindForbidden)

	admins, total, err := env.services.Admin.List(ctx, env.admin, 1, 10)
	if err != nil || total != 2 || len(admins) != 2 {
		t.Fatalf("list: %d %v", total, err)
	}

	// self-delete is allowed while another admin remains
	if err := env.services.Admin.Delete(ctx, env.admin, env.admin.UserID); err != nil {
		t.Fatalf("delete self: %v", err)
	}
	registrar := &auth.Claims{UserID: created.ID, Role: models.RoleAdmin}
	err = env.services.Admin.Delete(ctx, registrar, created.ID)
	if !errors.Is(err, apperrors.ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
	assertKind(t, err, apperrors.KindForbidden)
}
