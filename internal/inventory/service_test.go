package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/rbac"
	"github.com/roz-pos/roz/internal/shared"
	_ "github.com/roz-pos/roz/testing"
)

type memoryRepo struct {
	rows   map[int64]Product
	nextID int64
}

func newMemoryRepo(seed ...Product) *memoryRepo {
	r := &memoryRepo{rows: map[int64]Product{}}
	for _, p := range seed {
		r.nextID++
		p.ID = r.nextID
		r.rows[p.ID] = p
	}
	return r
}

func (r *memoryRepo) nameTaken(name string, except int64) bool {
	for id, p := range r.rows {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}

func (r *memoryRepo) List(ctx context.Context) ([]Product, error) {
	out := make([]Product, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.rows[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, httpx.ErrNotFound)
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, p Product) (Product, error) {
	if r.nameTaken(p.Name, 0) {
		return Product{}, fmt.Errorf("product %q: %w", p.Name, httpx.ErrDuplicate)
	}
	r.nextID++
	p.ID = r.nextID
	r.rows[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, p Product) (Product, error) {
	if _, ok := r.rows[p.ID]; !ok {
		return Product{}, fmt.Errorf("product %d: %w", p.ID, httpx.ErrNotFound)
	}
	if r.nameTaken(p.Name, p.ID) {
		return Product{}, fmt.Errorf("product %q: %w", p.Name, httpx.ErrDuplicate)
	}
	r.rows[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.rows[id]; !ok {
		return fmt.Errorf("product %d: %w", id, httpx.ErrNotFound)
	}
	delete(r.rows, id)
	return nil
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	cases := map[string]ProductRequest{
		"blank name":       {Name: "   "},
		"negative qty":     {Name: "Mouse", Quantity: -1},
		"negative sell":    {Name: "Mouse", SellPrice: -1},
		"negative cost":    {Name: "Mouse", PurchasePrice: -0.5},
		"name over length": {Name: strings.Repeat("x", 201)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, req)
			require.True(t, errors.Is(err, httpx.ErrValidation), "got %v", err)
		})
	}
}

func TestCreateProductTrimsAndRejectsDuplicates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, ProductRequest{Name: "  Mouse ", Quantity: 4, SellPrice: 45000})
	require.NoError(t, err)
	require.Equal(t, "Mouse", p.Name)

	_, err = svc.CreateProduct(ctx, ProductRequest{Name: "Mouse"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	require.Len(t, repo.rows, 1)
}

func TestDeleteMissingProduct(t *testing.T) {
	repo := newMemoryRepo(Product{Name: "Cable"})
	svc := NewService(repo, nil, nil)

	err := svc.DeleteProduct(context.Background(), 42)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Len(t, repo.rows, 1)
}

func TestValidateProductForRestore(t *testing.T) {
	require.NoError(t, ValidateProduct(Product{Name: "Mouse", Quantity: 0}))
	require.Error(t, ValidateProduct(Product{Name: "", Quantity: 1}))
	require.Error(t, ValidateProduct(Product{Name: "Mouse", Quantity: -3}))
}

func newTestRouter(repo *memoryRepo) http.Handler {
	h := NewHandler(nil, NewService(repo, nil, nil), rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/products", h.MountRoutes)
	return r
}

func asRole(req *http.Request, role string) *http.Request {
	if role == "" {
		return req
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), &shared.Session{
		ID:        "s",
		Principal: shared.Principal{Username: role, Role: role},
	}))
}

func TestProductRoutesAccess(t *testing.T) {
	router := newTestRouter(newMemoryRepo(Product{Name: "Mouse"}, Product{Name: "Cable"}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodGet, "/api/products", nil), shared.RoleUser))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	require.Equal(t, "Cable", list[0].Name)

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"name":"Pad","quantity":3}`)
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodPost, "/api/products", body), shared.RoleUser))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProductCRUDAsAdmin(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"name":"Mouse","quantity":5,"sellPrice":45000,"purchasePrice":30000,"vendor":"Acme"}`)
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodPost, "/api/products", body), shared.RoleAdmin))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, 5, created.Quantity)

	rec = httptest.NewRecorder()
	body = strings.NewReader(`{"name":"Mouse","quantity":9,"sellPrice":47000}`)
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodPut, "/api/products/1", body), shared.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 9, repo.rows[1].Quantity)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodGet, "/api/products/7", nil), shared.RoleAdmin))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asRole(httptest.NewRequest(http.MethodDelete, "/api/products/1", nil), shared.RoleAdmin))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, repo.rows)
}
