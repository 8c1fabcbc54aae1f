package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roz-pos/roz/internal/shared"
	_ "github.com/roz-pos/roz/testing"
)

func newSessionManager(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test-secret", time.Hour), mr
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestIssueAndLoadSession(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()

	token, issued, err := sm.Issue(ctx, shared.Principal{Username: "admin", Name: "Admin", Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sess, err := sm.Load(ctx, requestWithToken(token))
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, issued.ID, sess.ID)
	assert.True(t, sess.Principal.IsAdmin())
	assert.Equal(t, "Admin", sess.Principal.Name)
}

func TestLoadWithoutTokenIsAnonymous(t *testing.T) {
	sm, _ := newSessionManager(t)
	sess, err := sm.Load(context.Background(), requestWithToken(""))
	assert.NoError(t, err)
	assert.Nil(t, sess)
}

func TestLoadRejectsForgedToken(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()
	_, issued, err := sm.Issue(ctx, shared.Principal{Username: "user", Role: shared.RoleUser})
	require.NoError(t, err)

	// Same session id, elevated role, signed with a different key.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":  issued.ID,
		"sub":  "user",
		"iss":  "roz",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := forged.SignedString([]byte("attacker"))
	require.NoError(t, err)

	_, err = sm.Load(ctx, requestWithToken(raw))
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestRoleComesFromServerSession(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()
	_, issued, err := sm.Issue(ctx, shared.Principal{Username: "user", Role: shared.RoleUser})
	require.NoError(t, err)

	// Correctly signed token claiming admin still resolves to the stored role.
	claims := jwt.MapClaims{
		"jti":  issued.ID,
		"sub":  "user",
		"iss":  "roz",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	sess, err := sm.Load(ctx, requestWithToken(raw))
	require.NoError(t, err)
	assert.False(t, sess.Principal.IsAdmin())
}

func TestDestroyRevokesToken(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()
	token, sess, err := sm.Issue(ctx, shared.Principal{Username: "admin", Role: shared.RoleAdmin})
	require.NoError(t, err)

	require.NoError(t, sm.Destroy(ctx, sess))

	_, err = sm.Load(ctx, requestWithToken(token))
	assert.ErrorIs(t, err, shared.ErrSessionExpired)
}

func TestDestroyUserRevokesEverySession(t *testing.T) {
	sm, mr := newSessionManager(t)
	ctx := context.Background()

	first, _, err := sm.Issue(ctx, shared.Principal{Username: "bob", Role: shared.RoleAdmin})
	require.NoError(t, err)
	second, _, err := sm.Issue(ctx, shared.Principal{Username: "bob", Role: shared.RoleAdmin})
	require.NoError(t, err)
	other, _, err := sm.Issue(ctx, shared.Principal{Username: "alice", Role: shared.RoleUser})
	require.NoError(t, err)

	require.NoError(t, sm.DestroyUser(ctx, "bob"))

	for _, token := range []string{first, second} {
		_, err = sm.Load(ctx, requestWithToken(token))
		assert.ErrorIs(t, err, shared.ErrSessionExpired)
	}
	assert.False(t, mr.Exists("user_sessions:bob"))

	sess, err := sm.Load(ctx, requestWithToken(other))
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Principal.Username)
}

func TestDestroyUserWithoutSessions(t *testing.T) {
	sm, _ := newSessionManager(t)
	assert.NoError(t, sm.DestroyUser(context.Background(), "nobody"))
}

func TestSessionExpiresWithTTL(t *testing.T) {
	sm, mr := newSessionManager(t)
	ctx := context.Background()
	token, _, err := sm.Issue(ctx, shared.Principal{Username: "admin", Role: shared.RoleAdmin})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = sm.Load(ctx, requestWithToken(token))
	assert.Error(t, err)
}

func TestPrincipalFromContext(t *testing.T) {
	_, ok := shared.PrincipalFromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "anonymous", shared.ActorFromContext(context.Background()))

	ctx := shared.ContextWithSession(context.Background(), &shared.Session{ID: "s1", Principal: shared.Principal{Username: "admin", Role: shared.RoleAdmin}})
	p, ok := shared.PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "admin", p.Username)
	assert.Equal(t, "admin", shared.ActorFromContext(ctx))
}
