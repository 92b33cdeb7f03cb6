package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chainsocial/social-api/internal/core/domain"
)

func TestJWTIssuer_Issue(t *testing.T) {
	issuer := NewJWTIssuer("secret", time.Hour)
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	user := &domain.User{ID: "u1", Username: "alice", Permissions: []domain.Permission{domain.PermissionUser}}
	token, err := issuer.Issue(user, &domain.Wallet{ID: aliceWallet})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}

	if claims["sub"] != "u1" || claims["username"] != "alice" || claims["wallet"] != aliceWallet {
		t.Fatalf("unexpected claims: %v", claims)
	}
	perms, ok := claims["permissions"].([]interface{})
	if !ok || len(perms) != 1 || perms[0] != "user" {
		t.Fatalf("unexpected permissions claim: %v", claims["permissions"])
	}
	if exp, _ := claims["exp"].(float64); int64(exp) != issued.Add(time.Hour).Unix() {
		t.Fatalf("unexpected exp: %v", claims["exp"])
	}
}

func TestJWTIssuer_RequiresSecret(t *testing.T) {
	issuer := NewJWTIssuer("", 0)
	if issuer.ttl != 24*time.Hour {
		t.Fatalf("expected default ttl, got %s", issuer.ttl)
	}
	if _, err := issuer.Issue(&domain.User{ID: "u1"}, &domain.Wallet{ID: aliceWallet}); err == nil {
		t.Fatalf("expected error without a secret")
	}
}
