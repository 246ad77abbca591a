package token

import (
	"errors"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Minute)

	payload := map[string]any{
		"email": "a@x.com",
		"name":  "Alice",
		"photo": "https://img.example/alice.png",
	}
	tok, err := svc.Issue(payload)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	for key, want := range payload {
		if got := claims[key]; got != want {
			t.Fatalf("claim %q = %v, want %v", key, got, want)
		}
	}
	if _, ok := claims["exp"]; !ok {
		t.Fatal("expected exp claim")
	}
	if _, ok := claims["iat"]; !ok {
		t.Fatal("expected iat claim")
	}

	ident := IdentityFromClaims(claims)
	if ident.Email != "a@x.com" || ident.Name != "Alice" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)
	tok, err := svc.Issue(map[string]any{"email": "a@x.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := NewService("secret-a", time.Minute).Issue(map[string]any{"email": "a@x.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewService("secret-b", time.Minute).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Minute)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestDefaultTTLApplied(t *testing.T) {
	svc := NewService("test-secret", 0)
	if svc.TTL() != DefaultTTL {
		t.Fatalf("TTL = %v, want %v", svc.TTL(), DefaultTTL)
	}
}
