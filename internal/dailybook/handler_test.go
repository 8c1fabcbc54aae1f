package dailybook_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roz-pos/roz/internal/dailybook"
	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/rbac"
	"github.com/roz-pos/roz/internal/shared"
	_ "github.com/roz-pos/roz/testing"
)

type memoryRepo struct {
	nextID  int64
	entries []dailybook.Entry
	clock   time.Time
}

func (m *memoryRepo) List(ctx context.Context) ([]dailybook.Entry, error) {
	out := make([]dailybook.Entry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memoryRepo) Create(ctx context.Context, content string) (*dailybook.Entry, error) {
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	e := dailybook.Entry{ID: m.nextID, Content: content, CreatedAt: m.clock, UpdatedAt: m.clock}
	m.entries = append(m.entries, e)
	return &e, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, content string) (*dailybook.Entry, error) {
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].Content = content
			return &m.entries[i], nil
		}
	}
	return nil, fmt.Errorf("entry %d: %w", id, httpx.ErrNotFound)
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("entry %d: %w", id, httpx.ErrNotFound)
}

func newRouter(repo *memoryRepo) http.Handler {
	h := dailybook.NewHandler(nil, dailybook.NewService(repo), rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/daily-book", h.MountRoutes)
	return r
}

func do(router http.Handler, method, path, body, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if role != "" {
		req = req.WithContext(shared.ContextWithSession(req.Context(), &shared.Session{
			ID:        "s",
			Principal: shared.Principal{Username: role, Role: role},
		}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBlankContentRejected(t *testing.T) {
	repo := &memoryRepo{}
	router := newRouter(repo)

	for _, body := range []string{`{"content":""}`, `{"content":"   "}`, `{}`} {
		rec := do(router, http.MethodPost, "/api/daily-book", body, shared.RoleAdmin)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, repo.entries)
}

func TestNonAdminCannotWrite(t *testing.T) {
	repo := &memoryRepo{}
	router := newRouter(repo)

	rec := do(router, http.MethodPost, "/api/daily-book", `{"content":"closed register"}`, shared.RoleUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, repo.entries)
}

func TestListIsPublicNewestFirst(t *testing.T) {
	repo := &memoryRepo{}
	router := newRouter(repo)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/daily-book", `{"content":"opened register"}`, shared.RoleAdmin).Code)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/daily-book", `{"content":"closed register"}`, shared.RoleAdmin).Code)

	rec := do(router, http.MethodGet, "/api/daily-book", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []dailybook.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "closed register", entries[0].Content)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := &memoryRepo{}
	router := newRouter(repo)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/daily-book", `{"content":"note"}`, shared.RoleAdmin).Code)

	rec := do(router, http.MethodPut, "/api/daily-book/1", `{"content":"edited"}`, shared.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "edited", repo.entries[0].Content)

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodPut, "/api/daily-book/9", `{"content":"x"}`, shared.RoleAdmin).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPut, "/api/daily-book/1", `{"content":""}`, shared.RoleAdmin).Code)
	assert.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, "/api/daily-book/1", "", shared.RoleAdmin).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodDelete, "/api/daily-book/1", "", shared.RoleAdmin).Code)
}
