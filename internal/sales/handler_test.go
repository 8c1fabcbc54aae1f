package sales

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/rbac"
	"github.com/roz-pos/roz/internal/shared"
	_ "github.com/roz-pos/roz/testing"
)

func newTestRouter(f fixture) http.Handler {
	h := NewHandler(nil, f.service, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.MountRoutes(r)
		r.With(rbac.Middleware{}.RequireAdmin()).Get("/customers/{id}/debts", h.CustomerDebts)
	})
	return r
}

func saleRequest(body, role string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/sale", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req = req.WithContext(shared.ContextWithSession(req.Context(), &shared.Session{
			ID:        "s",
			Principal: shared.Principal{Username: role, Role: role},
		}))
	}
	return req
}

func TestHandlerRecordSale(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	body := `{"saleItems":[{"name":"Mouse","price":45000,"quantity":2,"total":1}],"customerId":"","paymentType":"cash"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, saleRequest(body, shared.RoleAdmin))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp RecordSaleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Sale recorded successfully", resp.Message)
	assert.Equal(t, int64(1), resp.SaleID)
	assert.Equal(t, float64(90000), resp.Total)
}

func TestHandlerDebtSaleWithStringCustomer(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	body := `{"saleItems":[{"name":"Mouse","price":45000,"quantity":2}],"customerId":"2","paymentType":"debt"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, saleRequest(body, shared.RoleAdmin))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/customers/2/debts", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), &shared.Session{
		ID:        "s",
		Principal: shared.Principal{Username: "admin", Role: shared.RoleAdmin},
	}))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var debts []Debt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &debts))
	require.Len(t, debts, 1)
	assert.Equal(t, float64(90000), debts[0].TotalDebt)
}

func TestHandlerDebtWithoutCustomerIs400(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	body := `{"saleItems":[{"name":"Mouse","price":45000,"quantity":2}],"customerId":null,"paymentType":"debt"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, saleRequest(body, shared.RoleAdmin))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Message, "a customer is required for debt sales")
	assert.Empty(t, f.store.committed.sales)
}

func TestHandlerRejectsNonAdmins(t *testing.T) {
	for _, role := range []string{"", shared.RoleUser} {
		f := newFixture()
		router := newTestRouter(f)

		body := `{"saleItems":[{"name":"Mouse","price":45000,"quantity":2}],"paymentType":"cash"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, saleRequest(body, role))
		require.Equal(t, http.StatusForbidden, rec.Code)

		var problem httpx.ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, httpx.AccessDeniedMessage, problem.Message)
		assert.Zero(t, f.store.txBegun)
	}
}

func TestHandlerInsufficientStockIs409(t *testing.T) {
	f := newFixture()
	f.store.committed.stock[7] = 1
	router := newTestRouter(f)

	body := `{"saleItems":[{"name":"Mouse","price":45000,"quantity":2,"productId":7}],"paymentType":"cash"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, saleRequest(body, shared.RoleAdmin))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerReplayedIdempotencyKeyIs409(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)
	body := `{"saleItems":[{"name":"Mouse","price":45000,"quantity":2}],"paymentType":"cash"}`

	first := saleRequest(body, shared.RoleAdmin)
	first.Header.Set(IdempotencyHeader, "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)

	second := saleRequest(body, shared.RoleAdmin)
	second.Header.Set(IdempotencyHeader, "abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, f.store.committed.sales, 1)
}

func TestHandlerInternalErrorIsGeneric(t *testing.T) {
	f := newFixture()
	f.store.failItemInsertAt = 1
	router := newTestRouter(f)

	body := `{"saleItems":[{"name":"Mouse","price":45000,"quantity":2}],"paymentType":"cash"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, saleRequest(body, shared.RoleAdmin))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestHandlerListSalesAndShow(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)
	body := `{"saleItems":[{"name":"Mouse","price":45000,"quantity":2},{"name":"Pad","price":5000,"quantity":1}],"paymentType":"cash"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, saleRequest(body, shared.RoleAdmin))
	require.Equal(t, http.StatusCreated, rec.Code)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(shared.ContextWithSession(req.Context(), &shared.Session{
			ID:        "s",
			Principal: shared.Principal{Username: "admin", Role: shared.RoleAdmin},
		}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec = get("/api/sales")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = get("/api/sales/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var sale Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	assert.Len(t, sale.Items, 2)
	assert.Equal(t, float64(95000), sale.TotalAmount)

	assert.Equal(t, http.StatusNotFound, get("/api/sales/42").Code)
}

func TestOptionalIDDecoding(t *testing.T) {
	cases := []struct {
		in    string
		want  OptionalID
		isErr bool
	}{
		{`null`, OptionalID{}, false},
		{`""`, OptionalID{}, false},
		{`"  "`, OptionalID{}, false},
		{`5`, SomeID(5), false},
		{`"12"`, SomeID(12), false},
		{`0`, OptionalID{}, true},
		{`"abc"`, OptionalID{}, true},
		{`-3`, OptionalID{}, true},
		{`1.5`, OptionalID{}, true},
	}
	for _, tc := range cases {
		var id OptionalID
		err := json.Unmarshal([]byte(tc.in), &id)
		if tc.isErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, id, tc.in)
	}
}
