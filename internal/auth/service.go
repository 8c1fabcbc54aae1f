package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/roz-pos/roz/internal/shared"
	"github.com/roz-pos/roz/internal/users"
)

// Repository defines the account lookup needed by sign-in.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *shared.SessionManager
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *shared.SessionManager) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (shared.Principal, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return shared.Principal{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return shared.Principal{}, shared.ErrInvalidCredentials
	}
	return shared.Principal{Username: user.Username, Name: user.Name, Role: user.Role}, nil
}

// Login authenticates and opens a server session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	principal, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return LoginResponse{}, err
	}
	token, sess, err := s.sessions.Issue(ctx, principal)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{Token: token, ExpiresAt: sess.ExpiresAt, User: principal}, nil
}

// Logout revokes the session.
func (s *Service) Logout(ctx context.Context, sess *shared.Session) error {
	return s.sessions.Destroy(ctx, sess)
}
