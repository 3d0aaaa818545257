package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"bookify/pkg/domain"
)

func TestIssueAndVerifyToken(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	token, err := issuer.Issue("user-1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.SubjectID != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.SubjectID)
	}
	if claims.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role claim, got %q", claims.Role)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokenIssuer("secret-a")
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	other, err := NewTokenIssuer("secret-b")
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	token, err := other.Issue("user-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatalf("expected verification to fail for wrong secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	issuer.ttl = -time.Hour
	issuer.leeway = 0
	token, err := issuer.Issue("user-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Fatalf("expected none-algorithm token to be rejected")
	}
}

func TestVerifyDefaultsUnknownRoleToUser(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	token, err := issuer.Issue("user-1", domain.UserRole("superuser"))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("unknown role should collapse to user, got %q", claims.Role)
	}
}
