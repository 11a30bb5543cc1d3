package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/utils"
)

type stubAuth struct{}

func (stubAuth) Authenticate(ctx context.Context, token string) (models.User, *utils.Claims, error) {
	if token != "good" {
		return models.User{}, nil, errors.New("bad token")
	}
	claims := &utils.Claims{Role: "member"}
	claims.Subject = "3"
	return models.User{ID: "3", Role: models.RoleMember}, claims, nil
}

func TestJWTAuthMiddleware(t *testing.T) {
	var seen models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("no user in context")
		}
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			t.Error("no claims in context")
		}
		seen = user
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTAuthMiddleware(stubAuth{})(next)

	tests := []struct {
		header string
		want   int
	}{
		{header: "", want: http.StatusUnauthorized},
		{header: "good", want: http.StatusUnauthorized},
		{header: "Bearer bad", want: http.StatusUnauthorized},
		{header: "Bearer good", want: http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("Authorization %q: status = %d, want %d", tt.header, rec.Code, tt.want)
		}
	}
	if seen.ID != "3" {
		t.Fatalf("handler saw user %+v", seen)
	}
}

func TestEnableCORS(t *testing.T) {
	called := false
	handler := EnableCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/tasks", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("preflight: status %d, next called %v", rec.Code, called)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	if !called {
		t.Fatal("GET did not reach the next handler")
	}
	if rec.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Fatal("missing CORS headers")
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}
