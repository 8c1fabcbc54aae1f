package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	DeleteUser(ctx context.Context, username string) error
}

// SessionRevoker signs a user out of every session.
type SessionRevoker interface {
	DestroyUser(ctx context.Context, username string) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	sessions SessionRevoker
	cost     int
}

// NewService builds Service instance. sessions may be nil when nothing
// holds sessions, as in tools that only manage accounts.
func NewService(repo RepositoryPort, sessions SessionRevoker) *Service {
	return &Service{repo: repo, sessions: sessions, cost: bcrypt.DefaultCost}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// FindByUsername returns the stored account including its password hash.
func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.FindByUsername(ctx, strings.TrimSpace(username))
}

// CreateUser validates the input, hashes the password and stores the account.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Name = strings.TrimSpace(input.Name)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	if err := httpx.ValidateStruct(input); err != nil {
		return User{}, err
	}
	if input.Name == "" {
		input.Name = input.Username
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, User{
		Username:     input.Username,
		Name:         input.Name,
		Role:         input.Role,
		PasswordHash: string(hash),
	})
}

// DeleteUser removes an account and revokes its sessions. Admins cannot
// remove the account they are signed in with.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", httpx.ErrValidation)
	}
	if p, ok := shared.PrincipalFromContext(ctx); ok && p.Username == username {
		return fmt.Errorf("%w: you cannot delete your own account", httpx.ErrConflict)
	}
	if err := s.repo.DeleteUser(ctx, username); err != nil {
		return err
	}
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.DestroyUser(ctx, username); err != nil {
		return fmt.Errorf("revoke sessions of %q: %w", username, err)
	}
	return nil
}
