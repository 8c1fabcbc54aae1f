package users_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/shared"
	"github.com/roz-pos/roz/internal/users"
	_ "github.com/roz-pos/roz/testing"
)

type memoryRepo struct {
	nextID int64
	byName map[string]users.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byName: map[string]users.User{}}
}

func (m *memoryRepo) ListUsers(ctx context.Context) ([]users.User, error) {
	out := make([]users.User, 0, len(m.byName))
	for _, u := range m.byName {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryRepo) FindByUsername(ctx context.Context, username string) (users.User, error) {
	u, ok := m.byName[username]
	if !ok {
		return users.User{}, fmt.Errorf("user %q: %w", username, httpx.ErrNotFound)
	}
	return u, nil
}

func (m *memoryRepo) CreateUser(ctx context.Context, u users.User) (users.User, error) {
	if _, ok := m.byName[u.Username]; ok {
		return users.User{}, httpx.ErrDuplicate
	}
	m.nextID++
	u.ID = m.nextID
	m.byName[u.Username] = u
	return u, nil
}

func (m *memoryRepo) DeleteUser(ctx context.Context, username string) error {
	if _, ok := m.byName[username]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.byName, username)
	return nil
}

func adminContext(username string) context.Context {
	return shared.ContextWithSession(context.Background(), &shared.Session{
		ID:        "s",
		Principal: shared.Principal{Username: username, Role: shared.RoleAdmin},
	})
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := users.NewService(repo, nil)

	user, err := svc.CreateUser(context.Background(), users.CreateUserInput{
		Username: " cashier ",
		Password: "s3cret",
		Role:     "User",
	})
	require.NoError(t, err)
	assert.Equal(t, "cashier", user.Username)
	assert.Equal(t, "cashier", user.Name)
	assert.Equal(t, shared.RoleUser, user.Role)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
}

func TestCreateUserValidation(t *testing.T) {
	svc := users.NewService(newMemoryRepo(), nil)

	cases := []users.CreateUserInput{
		{Username: "", Password: "s3cret", Role: "user"},
		{Username: "a", Password: "", Role: "user"},
		{Username: "a", Password: "s3cret", Role: "owner"},
	}
	for _, in := range cases {
		_, err := svc.CreateUser(context.Background(), in)
		assert.True(t, errors.Is(err, httpx.ErrValidation), "%+v", in)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	svc := users.NewService(newMemoryRepo(), nil)
	in := users.CreateUserInput{Username: "admin", Password: "admin", Role: "admin"}
	_, err := svc.CreateUser(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), in)
	assert.Equal(t, http.StatusConflict, httpx.StatusFor(err))
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	repo := newMemoryRepo()
	svc := users.NewService(repo, nil)
	_, err := svc.CreateUser(context.Background(), users.CreateUserInput{Username: "admin", Password: "admin", Role: "admin"})
	require.NoError(t, err)

	err = svc.DeleteUser(adminContext("admin"), "admin")
	assert.True(t, errors.Is(err, httpx.ErrConflict))
	_, stillThere := repo.byName["admin"]
	assert.True(t, stillThere)
}

func TestDeleteUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := users.NewService(repo, nil)
	_, err := svc.CreateUser(context.Background(), users.CreateUserInput{Username: "user", Password: "user", Role: "user"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(adminContext("admin"), "user"))
	assert.Empty(t, repo.byName)

	err = svc.DeleteUser(adminContext("admin"), "user")
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestDeleteUserRevokesSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test-secret", time.Hour)

	repo := newMemoryRepo()
	svc := users.NewService(repo, sessions)
	_, err := svc.CreateUser(context.Background(), users.CreateUserInput{Username: "bob", Password: "secret", Role: "admin"})
	require.NoError(t, err)

	ctx := context.Background()
	token, _, err := sessions.Issue(ctx, shared.Principal{Username: "bob", Role: shared.RoleAdmin})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(adminContext("admin"), "bob"))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	sess, err := sessions.Load(ctx, req)
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, shared.ErrSessionExpired)
}

type failingRevoker struct{}

func (failingRevoker) DestroyUser(ctx context.Context, username string) error {
	return errors.New("redis: connection refused")
}

func TestDeleteUserReportsRevokeFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc := users.NewService(repo, failingRevoker{})
	_, err := svc.CreateUser(context.Background(), users.CreateUserInput{Username: "bob", Password: "secret", Role: "user"})
	require.NoError(t, err)

	err = svc.DeleteUser(adminContext("admin"), "bob")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, httpx.StatusFor(err))
}
