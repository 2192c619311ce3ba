package user

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nisHanRam/Placify-Backend/internal/apperr"
	"github.com/nisHanRam/Placify-Backend/internal/repository/memory"
	"github.com/nisHanRam/Placify-Backend/pkg/config"
	jwtpkg "github.com/nisHanRam/Placify-Backend/pkg/jwt"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.APIConfig {
	return config.APIConfig{
		JWTSecret:        "test-secret",
		AccessTokenTTL:   time.Hour,
		DefaultUserImage: "https://example.com/avatar.png",
	}
}

func newService() (Service, *memory.Store) {
	store := memory.New()
	return New(store, newLogger(), testConfig()), store
}

func signupInput() SignupInput {
	return SignupInput{Name: "Ada", Email: "Ada@Example.com", Password: "secret1"}
}

func TestSignupCreatesUserAndToken(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, signupInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected lower-cased email, got %q", user.Email)
	}
	if user.Image != "https://example.com/avatar.png" {
		t.Fatalf("expected default image, got %q", user.Image)
	}
	if string(user.PasswordHash) == "secret1" {
		t.Fatalf("password stored in plain text")
	}
	if len(user.PlaceIDs) != 0 {
		t.Fatalf("expected no places, got %v", user.PlaceIDs)
	}
	claims, err := jwtpkg.Parse(token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("token user mismatch: %s != %s", claims.UserID, user.ID)
	}

	stored, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if stored.Name != "Ada" {
		t.Fatalf("unexpected name %q", stored.Name)
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	if _, _, err := svc.Signup(ctx, signupInput()); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	again := signupInput()
	again.Email = "ADA@example.com"
	_, _, err := svc.Signup(ctx, again)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if apperr.From(err).Message != msgEmailTaken {
		t.Fatalf("unexpected message %q", apperr.From(err).Message)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}
}

func TestSignupValidation(t *testing.T) {
	svc, store := newService()
	cases := map[string]SignupInput{
		"missing name":   {Email: "a@example.com", Password: "secret1"},
		"invalid email":  {Name: "A", Email: "not-an-email", Password: "secret1"},
		"display name":   {Name: "A", Email: "A <a@example.com>", Password: "secret1"},
		"short password": {Name: "A", Email: "a@example.com", Password: "12345"},
		"missing email":  {Name: "A", Password: "secret1"},
		"long password":  {Name: "A", Email: "a@example.com", Password: strings.Repeat("a", 73)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Signup(context.Background(), in)
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	users, _ := store.ListUsers(context.Background())
	if len(users) != 0 {
		t.Fatalf("validation failures must not create users")
	}
}

func TestSignupAcceptsLongestHashablePassword(t *testing.T) {
	svc, _ := newService()
	in := signupInput()
	in.Password = strings.Repeat("a", 72)
	if _, _, err := svc.Signup(context.Background(), in); err != nil {
		t.Fatalf("signup with 72-byte password: %v", err)
	}
}

func TestLoginSucceeds(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	created, _, err := svc.Signup(ctx, signupInput())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	user, token, err := svc.Login(ctx, " ADA@example.com ", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("unexpected user %s", user.ID)
	}

	authed, claims, err := svc.Authorize(ctx, "  "+token+"  ")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if authed.ID != created.ID || claims.Email != "ada@example.com" {
		t.Fatalf("unexpected authorization result: %s %s", authed.ID, claims.Email)
	}
}

func TestLoginFailuresShareMessage(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	if _, _, err := svc.Signup(ctx, signupInput()); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, _, wrongPassword := svc.Login(ctx, "ada@example.com", "not-it")
	_, _, unknownEmail := svc.Login(ctx, "nobody@example.com", "secret1")

	for _, err := range []error{wrongPassword, unknownEmail} {
		if apperr.KindOf(err) != apperr.KindUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	}
	if apperr.From(wrongPassword).Message != apperr.From(unknownEmail).Message {
		t.Fatalf("login failures reveal which check failed")
	}
	if apperr.From(unknownEmail).Message != msgBadCredentials {
		t.Fatalf("unexpected message %q", apperr.From(unknownEmail).Message)
	}
}

func TestAuthorizeRejectsBadTokens(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, _, err := svc.Authorize(ctx, ""); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for empty token, got %v", err)
	}
	forged, err := jwtpkg.GenerateToken("u1", "a@example.com", "other-secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := svc.Authorize(ctx, forged); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for forged token, got %v", err)
	}
	orphan, err := jwtpkg.GenerateToken("ghost", "g@example.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := svc.Authorize(ctx, orphan); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestViewOmitsPassword(t *testing.T) {
	svc, _ := newService()
	user, _, err := svc.Signup(context.Background(), signupInput())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	data, err := json.Marshal(NewView(*user))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := strings.ToLower(string(data))
	if strings.Contains(body, "password") || strings.Contains(body, "hash") {
		t.Fatalf("view leaks credentials: %s", data)
	}
	if !strings.Contains(body, `"places":[]`) {
		t.Fatalf("expected empty places list: %s", data)
	}
}
