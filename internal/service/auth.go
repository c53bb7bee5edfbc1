// Package service holds the server business logic between the HTTP handlers
// and the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Quaternijkon/betterfly/internal/models"
	"github.com/Quaternijkon/betterfly/internal/repository"
)

// Sign-in providers.
const (
	ProviderAnonymous = "anonymous"
	ProviderLogin     = "login"
)

var (
	// ErrUnknownProvider is returned for a sign-in with an unsupported provider.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrInvalidLogin is returned when the login provider is used without a login.
	ErrInvalidLogin = errors.New("login is required")
	// ErrInvalidToken is returned when a bearer token does not match any user.
	ErrInvalidToken = errors.New("invalid token")
)

// AuthRepository defines the persistence operations required by the AuthService.
type AuthRepository interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
	GetUserByToken(ctx context.Context, token string) (models.User, error)
}

// AuthService issues and resolves opaque bearer tokens.
type AuthService struct {
	repo  AuthRepository
	newID func() string
	now   func() time.Time
}

func NewAuthService(repo AuthRepository) *AuthService {
	return &AuthService{repo: repo, newID: uuid.NewString, now: time.Now}
}

// SignIn creates an anonymous account, or returns the named account for the
// login provider and creates it on first use.
func (s *AuthService) SignIn(ctx context.Context, provider, login string) (models.User, error) {
	login = strings.TrimSpace(login)
	switch provider {
	case ProviderAnonymous:
		return s.create(ctx, provider, "")
	case ProviderLogin:
		if login == "" {
			return models.User{}, ErrInvalidLogin
		}
		u, err := s.repo.GetUserByLogin(ctx, login)
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.create(ctx, provider, login)
		}
		return u, err
	default:
		return models.User{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

func (s *AuthService) create(ctx context.Context, provider, login string) (models.User, error) {
	u := models.User{
		ID:        s.newID(),
		Provider:  provider,
		Login:     login,
		Token:     s.newID(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Authenticate resolves a bearer token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrInvalidToken
	}
	u, err := s.repo.GetUserByToken(ctx, token)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrInvalidToken
	}
	return u, err
}
