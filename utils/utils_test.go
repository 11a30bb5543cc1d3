package utils

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, issued, err := issuer.GenerateToken("3", "member")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "3" || claims.Role != "member" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ID != issued.ID {
		t.Fatalf("token id = %q, want %q", claims.ID, issued.ID)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("one", time.Hour).GenerateToken("1", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := NewTokenIssuer("two", time.Hour).ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", time.Minute).WithClock(func() time.Time { return now })

	token, _, err := issuer.GenerateToken("1", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := issuer.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken for expired token", err)
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, claims, err := issuer.GenerateToken("2", "manager")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	other, _, err := issuer.GenerateToken("2", "manager")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	issuer.Revoke(claims)

	if _, err := issuer.ValidateToken(token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
	if _, err := issuer.ValidateToken(other); err != nil {
		t.Fatalf("second session should stay valid: %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	h := PasswordHasher{Cost: bcrypt.MinCost}
	hash, err := h.HashPassword("member123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "member123" {
		t.Fatal("hash must not equal the password")
	}
	if err := CheckPassword(hash, "member123"); err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("err = %v, want ErrPasswordMismatch", err)
	}
}
