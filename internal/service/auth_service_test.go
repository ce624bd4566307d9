package service

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spindit/locker-service/internal/auth"
	"github.com/spindit/locker-service/internal/domain"
	apperrors "github.com/spindit/locker-service/pkg/util/errorutil"
)

func TestSignupLoginAndCurrentUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	user, token, err := env.auth.Signup(ctx, SignupInput{
		Email:           " Parent@Example.test ",
		Password:        "Spindit#10",
		PasswordConfirm: "Spindit#10",
		Profile:         ProfileInput{FullName: "Alex Johnson", Language: domain.LanguageEnglish},
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "parent@example.test" || user.FullName != "Alex Johnson" || user.Language != domain.LanguageEnglish {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.IsStaff || token.Role != domain.RoleGuardian || token.Value == "" {
		t.Fatalf("signup must create a guardian, got token %+v", token)
	}

	current, err := env.auth.CurrentUser(ctx, token.Value)
	if err != nil || current.ID != user.ID {
		t.Fatalf("current user: %+v %v", current, err)
	}

	_, _, err = env.auth.Signup(ctx, SignupInput{Email: "parent@example.test", Password: "Spindit#10", PasswordConfirm: "Spindit#10"})
	expectCode(t, err, apperrors.CodeConflict)

	if _, _, err := env.auth.Login(ctx, LoginInput{Email: "PARENT@example.test", Password: "Spindit#10"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, _, err = env.auth.Login(ctx, LoginInput{Email: "parent@example.test", Password: "wrong-password"})
	expectCode(t, err, apperrors.CodeUnauthorized)
	_, _, err = env.auth.Login(ctx, LoginInput{Email: "nobody@example.test", Password: "Spindit#10"})
	expectCode(t, err, apperrors.CodeUnauthorized)

	_, err = env.auth.CurrentUser(ctx, "not-a-token")
	expectCode(t, err, apperrors.CodeUnauthorized)
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cases := []struct {
		name  string
		input SignupInput
		field string
	}{
		{"bad email", SignupInput{Email: "nope", Password: "longenough", PasswordConfirm: "longenough"}, "email"},
		{"short password", SignupInput{Email: "a@example.test", Password: "short", PasswordConfirm: "short"}, "password"},
		{"mismatch", SignupInput{Email: "a@example.test", Password: "longenough", PasswordConfirm: "different1"}, "password_confirm"},
		{"bad language", SignupInput{Email: "a@example.test", Password: "longenough", PasswordConfirm: "longenough",
			Profile: ProfileInput{Language: "fr"}}, "language"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := env.auth.Signup(ctx, tc.input)
			expectCode(t, err, apperrors.CodeValidation)
			fields, _ := apperrors.ToDomainError(err).Details["fields"].(map[string]string)
			if _, ok := fields[tc.field]; !ok {
				t.Fatalf("expected field %q in %v", tc.field, fields)
			}
		})
	}
}

func TestUpdateProfileAndChangePassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user, _, err := env.auth.Signup(ctx, SignupInput{Email: "a@example.test", Password: "Spindit#10", PasswordConfirm: "Spindit#10"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Language != domain.DefaultLanguage {
		t.Fatalf("expected default language, got %s", user.Language)
	}

	updated, err := env.auth.UpdateProfile(ctx, user.ID, ProfileInput{FullName: "Lea Schneider", Phone: "+41443004404"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.FullName != "Lea Schneider" || updated.Phone != "+41443004404" || updated.Language != domain.DefaultLanguage {
		t.Fatalf("unexpected profile %+v", updated)
	}

	err = env.auth.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "NewSecret#1", NewPasswordConf: "NewSecret#1"})
	expectCode(t, err, apperrors.CodeUnauthorized)

	if err := env.auth.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "Spindit#10", NewPassword: "NewSecret#1", NewPasswordConf: "NewSecret#1"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := env.auth.Login(ctx, LoginInput{Email: "a@example.test", Password: "NewSecret#1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestLoginRehashesOutdatedCost(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	hash, err := auth.HashPassword("Spindit#10", bcrypt.MinCost+1)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{Email: "old@example.test", PasswordHash: hash, Language: domain.DefaultLanguage}
	if err := env.store.Users.Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, _, err := env.auth.Login(ctx, LoginInput{Email: u.Email, Password: "Spindit#10"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, err := env.store.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(stored.PasswordHash)); cost != bcrypt.MinCost {
		t.Fatalf("expected rehash to cost %d, got %d", bcrypt.MinCost, cost)
	}
	if _, _, err := env.auth.Login(ctx, LoginInput{Email: u.Email, Password: "Spindit#10"}); err != nil {
		t.Fatalf("login after rehash: %v", err)
	}
}

func TestSignupRejectsPasswordOverBcryptLimit(t *testing.T) {
	env := newTestEnv(t)
	long := strings.Repeat("ä", 40)
	_, _, err := env.auth.Signup(context.Background(), SignupInput{
		Email:           "long@example.test",
		Password:        long,
		PasswordConfirm: long,
	})
	expectCode(t, err, apperrors.CodeValidation)
}
