package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shiled-1/task-sheduler/logging"
	"github.com/shiled-1/task-sheduler/models"
	"github.com/shiled-1/task-sheduler/repositories"
	"github.com/shiled-1/task-sheduler/utils"
)

type AuthService struct {
	users  repositories.UserStore
	tokens *utils.TokenIssuer
	hasher utils.PasswordHasher
	newID  func() string
}

func NewAuthService(users repositories.UserStore, tokens *utils.TokenIssuer, hasher utils.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		newID:  uuid.NewString,
	}
}

type SignupRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Session is a signed-in user and the bearer token that identifies them.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		logging.Logger.Warnf("Event ID: LOGIN_UNKNOWN_EMAIL, Description: Login attempt for unknown email %s", email)
		return Session{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if err != nil {
		return Session{}, storeError("get user by email", email, err)
	}
	if err := utils.CheckPassword(user.PasswordHash, password); err != nil {
		logging.Logger.Warnf("Event ID: LOGIN_BAD_PASSWORD, Description: Wrong password for user %s", user.ID)
		return Session{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	return s.openSession(user)
}

// Signup registers a new account and signs it in.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (Session, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	switch {
	case name == "":
		return Session{}, invalid("name", "name is required")
	case email == "" || !strings.Contains(email, "@"):
		return Session{}, invalid("email", "a valid email is required")
	case len(req.Password) < utils.MinPasswordLength:
		return Session{}, invalid("password", fmt.Sprintf("password must be at least %d characters", utils.MinPasswordLength))
	case !req.Role.Valid():
		return Session{}, invalid("role", fmt.Sprintf("unknown role %q", req.Role))
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		Role:         req.Role,
		PasswordHash: hash,
	}
	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, repositories.ErrDuplicate) {
		return Session{}, invalid("email", "Email already registered")
	}
	if err != nil {
		return Session{}, storeError("create user", user.ID, err)
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User %s registered with role %s", user.ID, user.Role)
	return s.openSession(user)
}

// Logout revokes the token the claims were read from.
func (s *AuthService) Logout(claims *utils.Claims) {
	s.tokens.Revoke(claims)
	if claims != nil {
		logging.Logger.Infof("Event ID: USER_LOGGED_OUT, Description: User %s logged out", claims.Subject)
	}
}

// Authenticate validates a bearer token and resolves its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, *utils.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return models.User{}, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.CurrentUser(ctx, claims)
	if err != nil {
		return models.User{}, nil, err
	}
	return user, claims, nil
}

// CurrentUser re-reads the token's subject so a stale role claim never
// outlives the stored record.
func (s *AuthService) CurrentUser(ctx context.Context, claims *utils.Claims) (models.User, error) {
	if claims == nil {
		return models.User{}, ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, claims.Subject)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, fmt.Errorf("%w: user %s no longer exists", ErrUnauthorized, claims.Subject)
	}
	if err != nil {
		return models.User{}, storeError("get user", claims.Subject, err)
	}
	return user, nil
}

func (s *AuthService) AllUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storeError("list users", "", err)
	}
	return users, nil
}

func (s *AuthService) openSession(user models.User) (Session, error) {
	token, _, err := s.tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		logging.Logger.Errorf("Event ID: TOKEN_GENERATION_FAILED, Description: Could not issue token for %s: %v", user.ID, err)
		return Session{}, err
	}
	logging.Logger.Infof("Event ID: USER_LOGGED_IN, Description: User %s signed in", user.ID)
	return Session{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
