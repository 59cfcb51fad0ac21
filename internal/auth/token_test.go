package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)

	token, claims, err := iss.Issue("uid-1", "alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if claims.SessionID == "" {
		t.Fatal("expected a session id")
	}

	got, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.UserID != "uid-1" || got.Email != "alice@example.com" {
		t.Errorf("claims = %+v", got)
	}
	if got.SessionID != claims.SessionID {
		t.Errorf("session id = %q, want %q", got.SessionID, claims.SessionID)
	}
}

func TestIssueNewSessionEachTime(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	_, a, _ := iss.Issue("uid-1", "a@example.com")
	_, b, _ := iss.Issue("uid-1", "a@example.com")
	if a.SessionID == b.SessionID {
		t.Error("expected distinct session ids per login")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, _ := NewIssuer("secret-a", time.Hour).Issue("uid-1", "a@example.com")

	if _, err := NewIssuer("secret-b", time.Hour).Parse(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	iss := NewIssuer("test-secret", -time.Minute)
	token, _, _ := iss.Issue("uid-1", "a@example.com")

	if _, err := iss.Parse(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := NewIssuer("s", time.Hour).Parse("not-a-token"); err == nil {
		t.Error("expected error")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected mismatch")
	}
}
