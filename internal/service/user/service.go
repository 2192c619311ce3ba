package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/nisHanRam/Placify-Backend/internal/apperr"
	"github.com/nisHanRam/Placify-Backend/internal/domain"
	"github.com/nisHanRam/Placify-Backend/internal/repository"
	"github.com/nisHanRam/Placify-Backend/pkg/config"
	"github.com/nisHanRam/Placify-Backend/pkg/crypto"
	jwtpkg "github.com/nisHanRam/Placify-Backend/pkg/jwt"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

const (
	msgInvalidInput     = "Please provide valid inputs."
	msgSomethingWrong   = "Something went wrong."
	msgEmailTaken       = "Email already registered."
	msgSignupFailed     = "Signing up failed, please try again."
	msgBadCredentials   = "Could not login the user. Credentials seem to be wrong!"
	msgLoginFailed      = "Logging in failed, please try again."
	msgInvalidToken     = "Authentication failed."
	msgTokenIssueFailed = "Could not issue an access token."
)

// SignupInput carries the attributes of a new account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Image    string
}

// Service handles user listing and authentication workflows.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// dummyHash is compared against when a login email is unknown, keeping both
// failure paths at bcrypt cost.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := crypto.HashPassword("placify-dummy-password")
	if err != nil {
		return nil
	}
	return hash
})

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in SignupInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation(msgInvalidInput)
	}
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != strings.TrimSpace(in.Email) {
		return apperr.Validation(msgInvalidInput)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength || len(in.Password) > maxPasswordBytes {
		return apperr.Validation(msgInvalidInput)
	}
	return nil
}

// List returns every user in insertion order.
func (s Service) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(msgSomethingWrong, err)
	}
	return users, nil
}

// Signup registers a new user and issues an access token.
func (s Service) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	if err := in.validate(); err != nil {
		return nil, "", err
	}
	email := normalizeEmail(in.Email)

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, "", apperr.Conflict(msgEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperr.Internal(msgSignupFailed, err)
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, "", apperr.Internal(msgSignupFailed, err)
	}
	image := strings.TrimSpace(in.Image)
	if image == "" {
		image = s.cfg.DefaultUserImage
	}
	user := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Image:        image,
		PlaceIDs:     []string{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, "", apperr.Conflict(msgEmailTaken)
		}
		return nil, "", apperr.Internal(msgSignupFailed, err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates a user and issues an access token. Unknown emails and
// wrong passwords fail with the same error.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = crypto.ComparePassword(dummyHash(), password)
			return nil, "", apperr.Unauthorized(msgBadCredentials)
		}
		return nil, "", apperr.Internal(msgLoginFailed, err)
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", apperr.Unauthorized(msgBadCredentials)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// Authorize validates a bearer token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, apperr.Unauthorized(msgInvalidToken)
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, &apperr.Error{Kind: apperr.KindUnauthorized, Message: msgInvalidToken, Err: err}
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.Unauthorized(msgInvalidToken)
		}
		return nil, nil, apperr.Internal(msgSomethingWrong, err)
	}
	return user, claims, nil
}

func (s Service) issueToken(user *domain.User) (string, error) {
	token, err := jwtpkg.GenerateToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", apperr.Internal(msgTokenIssueFailed, err)
	}
	return token, nil
}
