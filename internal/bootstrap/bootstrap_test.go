package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/repositories/memory"
	"github.com/yigit/coursereg/internal/config"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
		Kind string `json:"kind"`
	} `json:"error"`
}

func (a apiClient) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", env.Data, err)
	}
	return v
}

type authData struct {
	Token struct {
		AccessToken string `json:"accessToken"`
	} `json:"token"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

func newTestAPI(t *testing.T) apiClient {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = "production"
	cfg.Database.Driver = config.DriverMemory
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenExpiration = "1h"
	cfg.JWT.Issuer = "coursereg.test"
	cfg.Security.BcryptCost = 4
	cfg.Enrollment.MaxAttempts = 3
	cfg.Enrollment.RetryBackoff = "1ms"
	cfg.Enrollment.ReconcileInterval = "1m"
	cfg.RateLimit.RefillInterval = "6s"
	cfg.RateLimit.TTL = "1m"
	cfg.BootstrapAdmin.Username = "root"
	cfg.BootstrapAdmin.Email = "root@school.edu"
	cfg.BootstrapAdmin.Password = "Secret123"

	deps, err := BuildDependencies(context.Background(), cfg, memory.NewRepositories(), zerolog.Nop())
	if err != nil {
		t.Fatalf("BuildDependencies: %v", err)
	}
	if deps.Redis != nil || deps.RepairConsumer != nil || deps.RepairPublisher != nil {
		t.Fatal("optional infrastructure should stay disabled")
	}
	return apiClient{t: t, router: SetupRouter(cfg, deps, zerolog.Nop())}
}

func (a apiClient) register(email, number string) authData {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"studentNumber": number,
		"email":         email,
		"password":      "Secret123",
		"firstName":     "Jane",
		"lastName":      "Doe",
		"program":       "Software Engineering",
	})
	if status != http.StatusCreated {
		a.t.Fatalf("register %s: %d %+v", email, status, env.Error)
	}
	return decode[authData](a.t, env)
}

func TestEnrollmentFlow(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{"username": "root", "password": "Secret123"})
	if status != http.StatusOK {
		t.Fatalf("admin login: %d", status)
	}
	adminToken := decode[authData](t, env).Token.AccessToken

	status, env = api.do(http.MethodPost, "/api/v1/courses", adminToken, map[string]string{
		"courseCode": "comp308", "courseName": "Emerging Technologies", "section": "001", "semester": "Fall 2026",
	})
	if status != http.StatusCreated {
		t.Fatalf("create course: %d %+v", status, env.Error)
	}
	course := decode[struct {
		ID         string `json:"id"`
		CourseCode string `json:"courseCode"`
	}](t, env)
	if course.CourseCode != "COMP308" {
		t.Fatalf("course code not normalized: %s", course.CourseCode)
	}

	jane := api.register("jane@school.edu", "300100200")
	enrollPath := "/api/v1/students/" + jane.User.ID + "/courses/" + course.ID

	for i, wantChanged := range []bool{true, false} {
		status, env = api.do(http.MethodPost, enrollPath, jane.Token.AccessToken, nil)
		if status != http.StatusOK {
			t.Fatalf("enroll #%d: %d %+v", i+1, status, env.Error)
		}
		result := decode[struct {
			State   string `json:"state"`
			Changed bool   `json:"changed"`
		}](t, env)
		if result.State != "ENROLLED" || result.Changed != wantChanged {
			t.Fatalf("enroll #%d: %+v", i+1, result)
		}
	}

	status, env = api.do(http.MethodGet, "/api/v1/courses/"+course.ID, jane.Token.AccessToken, nil)
	view := decode[struct {
		StudentCount int      `json:"studentCount"`
		StudentIDs   []string `json:"studentIds"`
	}](t, env)
	if status != http.StatusOK || view.StudentCount != 1 || view.StudentIDs != nil {
		t.Fatalf("student course view: %d %+v", status, view)
	}

	bob := api.register("bob@school.edu", "300100201")
	status, env = api.do(http.MethodPost, enrollPath, bob.Token.AccessToken, nil)
	if status != http.StatusForbidden || env.Error == nil || env.Error.Kind != "FORBIDDEN" {
		t.Fatalf("enroll for another student: %d %+v", status, env.Error)
	}

	status, _ = api.do(http.MethodPost, "/api/v1/admin/reconcile", jane.Token.AccessToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("student reconcile: %d", status)
	}
	status, env = api.do(http.MethodPost, "/api/v1/admin/reconcile", adminToken, nil)
	report := decode[struct {
		PairsRepaired int `json:"pairsRepaired"`
	}](t, env)
	if status != http.StatusOK || report.PairsRepaired != 0 {
		t.Fatalf("reconcile: %d %+v", status, report)
	}

	status, _ = api.do(http.MethodDelete, "/api/v1/courses/"+course.ID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete course: %d", status)
	}
	status, env = api.do(http.MethodGet, "/api/v1/students/"+jane.User.ID+"/courses", jane.Token.AccessToken, nil)
	if courses := decode[[]json.RawMessage](t, env); status != http.StatusOK || len(courses) != 0 {
		t.Fatalf("courses after delete: %d %d", status, len(courses))
	}
}

func TestAuthFailures(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/api/v1/courses", "", nil, http.StatusUnauthorized, "AUTH_008"},
		{"bad token", http.MethodGet, "/api/v1/courses", "garbage", nil, http.StatusUnauthorized, "AUTH_005"},
		{"wrong password", http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{"username": "root", "password": "Wrong1234"}, http.StatusUnauthorized, "AUTH_001"},
		{"invalid body", http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "nope"}, http.StatusBadRequest, "VAL_001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(tt.method, tt.path, tt.token, tt.body)
			if status != tt.status || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("got %d %+v", status, env.Error)
			}
		})
	}
}

func TestHealthAndDocs(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(http.MethodGet, "/api/v1/health", "", nil)
	health := decode[struct {
		Status string `json:"status"`
		Store  string `json:"store"`
	}](t, env)
	if status != http.StatusOK || health.Status != "ok" || health.Store != config.DriverMemory {
		t.Fatalf("health: %d %+v", status, health)
	}

	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("/students/{id}/courses/{courseId}")) {
		t.Fatalf("swagger doc: %d", w.Code)
	}
}
