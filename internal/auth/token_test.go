package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spindit/locker-service/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, err := tm.GenerateToken(&domain.User{ID: "u1", IsStaff: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token.Role != domain.RoleStaff || token.SubjectID != "u1" {
		t.Fatalf("token %+v", token)
	}
	claims, err := tm.ParseToken(token.Value)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != domain.RoleStaff {
		t.Fatalf("claims %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, err := tm.GenerateToken(&domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewTokenManager("other", time.Minute)
	if _, err := other.ParseToken(token.Value); err == nil {
		t.Error("token signed with another secret accepted")
	}

	late := NewTokenManager("secret", time.Minute)
	late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := late.ParseToken(token.Value); err == nil {
		t.Error("expired token accepted")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
	}
	for _, tc := range cases {
		got, err := BearerToken(tc.header)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("%q: got %q err %v", tc.header, got, err)
		}
	}
}

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("Spindit#10", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "Spindit#10"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
	if err := ComparePassword("", ""); err == nil {
		t.Fatal("empty hash accepted")
	}
	if _, err := HashPassword(strings.Repeat("ä", 40), 4); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("Spindit#10", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if NeedsRehash(hash, 4) {
		t.Fatal("same cost flagged")
	}
	if !NeedsRehash(hash, 5) {
		t.Fatal("higher cost not flagged")
	}
	if !NeedsRehash("not-a-hash", 4) {
		t.Fatal("garbage hash not flagged")
	}
}
