package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/repositories"
	"github.com/shiled-1/task-sheduler/services"
	"github.com/shiled-1/task-sheduler/utils"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := repositories.NewMemoryStore()
	hasher := utils.PasswordHasher{Cost: bcrypt.MinCost}
	seed, err := repositories.DefaultSeed()
	if err != nil {
		t.Fatalf("DefaultSeed: %v", err)
	}
	if _, err := repositories.Seed(context.Background(), store, seed, hasher.HashPassword, time.Now()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	router := NewRouter(Services{
		Auth:  services.NewAuthService(store, utils.NewTokenIssuer("test-secret", time.Hour), hasher),
		Tasks: services.NewTaskService(store, store),
		Chat:  services.NewChatService(store, store),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var body errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		t.Fatalf("%s %s: status = %d (%q), want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, body.Error, want)
	}
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
	expectStatus(t, resp, http.StatusOK)
	var session services.Session
	decode(t, resp, &session)
	return session.Token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodGet, "/health", "", nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	expectStatus(t, do(t, srv, http.MethodGet, "/api/tasks", "", nil), http.StatusUnauthorized)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/tasks", "garbage", nil), http.StatusUnauthorized)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "admin@example.com", Password: "nope"}), http.StatusUnauthorized)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodOptions, "/api/tasks", "", nil)
	expectStatus(t, resp, http.StatusNoContent)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestTaskFlow(t *testing.T) {
	srv := newTestServer(t)
	adminToken := login(t, srv, "admin@example.com", "admin123")
	managerToken := login(t, srv, "manager@example.com", "manager123")
	memberToken := login(t, srv, "member1@example.com", "member123")

	resp := do(t, srv, http.MethodPost, "/api/tasks", adminToken, services.NewTask{
		Title:      "Ship release",
		AssignedTo: "3",
		Deadline:   "2023-08-31",
		Priority:   models.PriorityHigh,
	})
	expectStatus(t, resp, http.StatusCreated)
	var created models.Task
	decode(t, resp, &created)

	resp = do(t, srv, http.MethodGet, "/api/tasks", memberToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var memberViews []services.TaskView
	decode(t, resp, &memberViews)
	if len(memberViews) != 2 || memberViews[0].ID != created.ID {
		t.Fatalf("member projection = %+v", memberViews)
	}

	resp = do(t, srv, http.MethodGet, "/api/tasks/"+created.ID, managerToken, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = do(t, srv, http.MethodPatch, "/api/tasks/"+created.ID, memberToken, map[string]string{"title": "mine now"})
	expectStatus(t, resp, http.StatusForbidden)
	var denied errorResponse
	decode(t, resp, &denied)
	if denied.Field != "title" {
		t.Fatalf("forbidden field = %q", denied.Field)
	}

	resp = do(t, srv, http.MethodPost, "/api/tasks/"+created.ID+"/status", memberToken, StatusUpdateRequest{
		Status:  models.StatusCompleted,
		Comment: func() *string { s := "done"; return &s }(),
	})
	expectStatus(t, resp, http.StatusOK)
	var updated models.Task
	decode(t, resp, &updated)
	if updated.Status != models.StatusCompleted || updated.LastComment == nil || *updated.LastComment != "done" {
		t.Fatalf("status update = %+v", updated)
	}

	resp = do(t, srv, http.MethodPatch, "/api/tasks/"+created.ID, adminToken, map[string]string{"priority": "low"})
	expectStatus(t, resp, http.StatusOK)

	expectStatus(t, do(t, srv, http.MethodDelete, "/api/tasks/"+created.ID, memberToken, nil), http.StatusForbidden)
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/tasks/"+created.ID, adminToken, nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/tasks/"+created.ID, adminToken, nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/tasks/"+created.ID, adminToken, nil), http.StatusNotFound)
}

func TestCreateTaskErrors(t *testing.T) {
	srv := newTestServer(t)
	managerToken := login(t, srv, "manager@example.com", "manager123")
	memberToken := login(t, srv, "member1@example.com", "member123")

	resp := do(t, srv, http.MethodPost, "/api/tasks", managerToken, services.NewTask{Title: "Up", AssignedTo: "1", Deadline: "2023-08-31"})
	expectStatus(t, resp, http.StatusBadRequest)
	var body errorResponse
	decode(t, resp, &body)
	if body.Field != "assignedTo" {
		t.Fatalf("field = %q, want assignedTo", body.Field)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/tasks", memberToken, services.NewTask{Title: "x", AssignedTo: "4", Deadline: "2023-08-31"}), http.StatusForbidden)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/tasks", managerToken, services.NewTask{Title: "x", AssignedTo: "99", Deadline: "2023-08-31"}), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/tasks", managerToken, map[string]string{"bogus": "field"}), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/tasks?status=archived", managerToken, nil), http.StatusBadRequest)
}

func TestUsersEndpoints(t *testing.T) {
	srv := newTestServer(t)
	managerToken := login(t, srv, "manager@example.com", "manager123")

	resp := do(t, srv, http.MethodGet, "/api/users/assignable", managerToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var users []models.User
	decode(t, resp, &users)
	if len(users) != 2 {
		t.Fatalf("assignable users = %+v, want the two members", users)
	}
	for _, u := range users {
		if u.Role != models.RoleMember {
			t.Fatalf("manager offered %s with role %s", u.ID, u.Role)
		}
	}

	resp = do(t, srv, http.MethodGet, "/api/auth/me", managerToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var me map[string]interface{}
	decode(t, resp, &me)
	if me["id"] != "2" {
		t.Fatalf("me = %v", me)
	}
	if _, leaked := me["passwordHash"]; leaked {
		t.Fatal("password hash exposed")
	}
}

func TestSignupAndLogout(t *testing.T) {
	srv := newTestServer(t)

	req := services.SignupRequest{Name: "New Person", Email: "new@example.com", Password: "secret1", Role: models.RoleMember}
	resp := do(t, srv, http.MethodPost, "/api/auth/signup", "", req)
	expectStatus(t, resp, http.StatusCreated)
	var session services.Session
	decode(t, resp, &session)

	resp = do(t, srv, http.MethodPost, "/api/auth/signup", "", req)
	expectStatus(t, resp, http.StatusBadRequest)
	var body errorResponse
	decode(t, resp, &body)
	if body.Error != "Email already registered" {
		t.Fatalf("error = %q", body.Error)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/auth/logout", session.Token, nil), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/auth/me", session.Token, nil), http.StatusUnauthorized)
}

func TestChatEndpoints(t *testing.T) {
	srv := newTestServer(t)
	memberToken := login(t, srv, "member1@example.com", "member123")
	managerToken := login(t, srv, "manager@example.com", "manager123")

	resp := do(t, srv, http.MethodGet, "/api/chat/contacts", memberToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var contacts []services.Contact
	decode(t, resp, &contacts)
	if len(contacts) != 3 {
		t.Fatalf("contacts = %+v", contacts)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/chat/2", memberToken, SendMessageRequest{Text: "status?"}), http.StatusCreated)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/chat/2", memberToken, SendMessageRequest{Text: "   "}), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/chat/99", memberToken, SendMessageRequest{Text: "hello"}), http.StatusNotFound)

	resp = do(t, srv, http.MethodGet, "/api/chat/3", managerToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var msgs []models.Message
	decode(t, resp, &msgs)
	if len(msgs) != 1 || msgs[0].Text != "status?" || msgs[0].SenderID != "3" {
		t.Fatalf("conversation = %+v", msgs)
	}
}
