package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roz-pos/roz/internal/rbac"
	"github.com/roz-pos/roz/internal/shared"
	"github.com/roz-pos/roz/internal/users"
)

func newUsersRouter(repo *memoryRepo) http.Handler {
	h := users.NewHandler(nil, users.NewService(repo, nil), rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/users", h.MountRoutes)
	return r
}

func asRole(req *http.Request, username, role string) *http.Request {
	ctx := shared.ContextWithSession(req.Context(), &shared.Session{
		ID:        "s",
		Principal: shared.Principal{Username: username, Role: role},
	})
	return req.WithContext(ctx)
}

func TestUsersEndpointsRequireAdmin(t *testing.T) {
	router := newUsersRouter(newMemoryRepo())

	req := asRole(httptest.NewRequest(http.MethodGet, "/api/users", nil), "user", shared.RoleUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAndListUsers(t *testing.T) {
	repo := newMemoryRepo()
	router := newUsersRouter(repo)

	body := `{"username":"cashier","name":"Front Desk","password":"pass1234","role":"user"}`
	req := asRole(httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body)), "admin", shared.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pass")

	req = asRole(httptest.NewRequest(http.MethodGet, "/api/users", nil), "admin", shared.RoleAdmin)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Front Desk", listed[0].Name)
}

func TestDeleteUserEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	_, err := repo.CreateUser(context.Background(), users.User{Username: "user", Role: shared.RoleUser})
	require.NoError(t, err)
	router := newUsersRouter(repo)

	req := asRole(httptest.NewRequest(http.MethodDelete, "/api/users/user", nil), "admin", shared.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = asRole(httptest.NewRequest(http.MethodDelete, "/api/users/ghost", nil), "admin", shared.RoleAdmin)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
