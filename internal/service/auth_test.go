package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/repository/sqlite"
)

// newTestAuthService wires an AuthService to an in-memory database.
// bcrypt cost 4 is the minimum and keeps the tests fast.
func newTestAuthService(t *testing.T) (*AuthService, *sqlite.DB) {
	t.Helper()
	db := newTestStore(t)
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return NewAuthService(db, tokens, auth.NewPasswordService(4), discardLogger()), db
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:     "vasya@example.com",
		Username:  "vasya.pupkin",
		FirstName: "Вася",
		LastName:  "Пупкин",
		Password:  "s3cret-pass",
	}
}

// =========================================================================
// REGISTER / LOGIN TESTS
// =========================================================================

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Register() returned a user without ID")
	}
	if user.PasswordHash == "s3cret-pass" {
		t.Fatal("password stored in plain text")
	}

	result, err := svc.Login(ctx, "vasya@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	userID, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != user.ID {
		t.Errorf("token subject = %q, want %q", userID, user.ID)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t)

	tests := []struct {
		name  string
		edit  func(in *RegisterInput)
		field string
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"bad username", func(in *RegisterInput) { in.Username = "has space" }, "username"},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }, "password"},
		{"missing first name", func(in *RegisterInput) { in.FirstName = "" }, "first_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegistration()
			tt.edit(&in)
			_, err := svc.Register(context.Background(), in)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Register() error = %v, want validation error", err)
			}
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	in := validRegistration()
	in.Username = "someone.else"
	if _, err := svc.Register(ctx, in); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second Register() error = %v, want ErrConflict", err)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for _, tc := range []struct{ email, password string }{
		{"vasya@example.com", "wrong-pass"},
		{"nobody@example.com", "s3cret-pass"},
		{"", ""},
	} {
		if _, err := svc.Login(ctx, tc.email, tc.password); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Login(%q, %q) error = %v, want ErrValidation", tc.email, tc.password, err)
		}
	}
}

func TestSetPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.SetPassword(ctx, user.ID, "wrong-pass", "brand-new"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("SetPassword() with wrong current error = %v, want ErrValidation", err)
	}
	if err := svc.SetPassword(ctx, user.ID, "s3cret-pass", "brand-new"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if _, err := svc.Login(ctx, "vasya@example.com", "s3cret-pass"); err == nil {
		t.Error("old password still accepted")
	}
	if _, err := svc.Login(ctx, "vasya@example.com", "brand-new"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	svc, _ := newTestAuthService(t)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:    42,
		Login: "octocat",
		Name:  "The Octocat",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("LoginOrRegisterGitHub() returned empty Token")
	}
	if result.User.Username != "octocat" {
		t.Errorf("Username = %q, want octocat", result.User.Username)
	}
	if result.User.Email != "42+octocat@users.noreply.github.com" {
		t.Errorf("Email = %q, want the noreply address", result.User.Email)
	}
	if result.User.GitHubID == nil || *result.User.GitHubID != 42 {
		t.Errorf("GitHubID = %v, want 42", result.User.GitHubID)
	}
}

func TestLoginOrRegisterGitHub_SecondLoginFindsSameUser(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	gh := &auth.GitHubUser{ID: 7, Login: "findme", Email: "findme@example.com"}

	first, err := svc.LoginOrRegisterGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("first login error = %v", err)
	}
	second, err := svc.LoginOrRegisterGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("second login error = %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Errorf("second login user = %q, want %q", second.User.ID, first.User.ID)
	}
}

func TestLoginOrRegisterGitHub_LinksExistingEmail(t *testing.T) {
	svc, db := newTestAuthService(t)
	ctx := context.Background()
	local, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "vasya", Email: "vasya@example.com"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.ID != local.ID {
		t.Errorf("user = %q, want the existing account %q", result.User.ID, local.ID)
	}
	linked, err := db.GetUserByGitHubID(ctx, 99)
	if err != nil {
		t.Fatalf("GetUserByGitHubID() error = %v", err)
	}
	if linked.ID != local.ID {
		t.Errorf("GitHub id linked to %q, want %q", linked.ID, local.ID)
	}
}

func TestLoginOrRegisterGitHub_UsernameTaken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 5, Login: "vasya.pupkin"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.Username != "vasya.pupkin-5" {
		t.Errorf("Username = %q, want vasya.pupkin-5", result.User.Username)
	}
}

func TestLoginOrRegisterGitHub_NilGitHubUser(t *testing.T) {
	svc, _ := newTestAuthService(t)
	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Fatal("LoginOrRegisterGitHub() should return error for nil GitHubUser")
	}
}

func TestValidateToken_Invalid(t *testing.T) {
	svc, _ := newTestAuthService(t)
	if _, err := svc.ValidateToken("not-a-jwt"); err == nil {
		t.Fatal("ValidateToken() should reject garbage")
	}
}
