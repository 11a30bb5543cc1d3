package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/repositories"
	"github.com/shiled-1/task-sheduler/utils"
)

func newTestAuthService(t *testing.T) (*AuthService, *repositories.MemoryStore) {
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
	return NewAuthService(store, utils.NewTokenIssuer("test-secret", time.Hour), hasher), store
}

func TestLoginWithSeedAccount(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	session, err := auth.Login(ctx, " Admin@Example.com ", "admin123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.User.ID != "1" || session.User.Role != models.RoleAdmin {
		t.Fatalf("user = %+v", session.User)
	}

	user, claims, err := auth.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != "1" || claims.Role != string(models.RoleAdmin) {
		t.Fatalf("authenticated %+v with role %q", user, claims.Role)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth.Login(ctx, "admin@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: err = %v, want ErrUnauthorized", err)
	}
	if _, err := auth.Login(ctx, "nobody@example.com", "admin123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown email: err = %v, want ErrUnauthorized", err)
	}
}

func TestSignupAndDuplicateEmail(t *testing.T) {
	auth, store := newTestAuthService(t)
	ctx := context.Background()

	session, err := auth.Signup(ctx, SignupRequest{Name: "New Member", Email: "new@example.com", Password: "secret1", Role: models.RoleMember})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if session.Token == "" {
		t.Fatal("signup should sign the user in")
	}
	stored, err := store.GetUserByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Fatalf("password not hashed: %q", stored.PasswordHash)
	}

	_, err = auth.Signup(ctx, SignupRequest{Name: "Again", Email: "NEW@example.com", Password: "secret1", Role: models.RoleMember})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != "Email already registered" {
		t.Fatalf("err = %v, want duplicate email validation error", err)
	}
}

func TestSignupValidation(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   SignupRequest
		field string
	}{
		{name: "no name", req: SignupRequest{Email: "a@example.com", Password: "secret1", Role: models.RoleMember}, field: "name"},
		{name: "bad email", req: SignupRequest{Name: "A", Email: "nope", Password: "secret1", Role: models.RoleMember}, field: "email"},
		{name: "short password", req: SignupRequest{Name: "A", Email: "a@example.com", Password: "123", Role: models.RoleMember}, field: "password"},
		{name: "bad role", req: SignupRequest{Name: "A", Email: "a@example.com", Password: "secret1", Role: "owner"}, field: "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Signup(ctx, tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("err = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	session, err := auth.Login(ctx, "member1@example.com", "member123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, claims, err := auth.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	auth.Logout(claims)

	if _, _, err := auth.Authenticate(ctx, session.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized after logout", err)
	}
}

func TestAllUsersListsSeed(t *testing.T) {
	auth, _ := newTestAuthService(t)

	users, err := auth.AllUsers(context.Background())
	if err != nil {
		t.Fatalf("AllUsers: %v", err)
	}
	if len(users) != 4 {
		t.Fatalf("got %d users, want 4", len(users))
	}
}
