package sales

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/rbac"
)

// IdempotencyHeader lets clients make sale submission safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes the sale endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers the sale routes. Every route is admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Post("/sale", h.RecordSale)
		r.Get("/sales", h.ListSales)
		r.Get("/sales/{id}", h.ShowSale)
		r.Get("/debts", h.ListDebts)
	})
}

func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req RecordSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))

	result, err := h.service.RecordSale(r.Context(), req, key)
	if err != nil {
		h.fail(w, "record sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, RecordSaleResponse{
		Message: "Sale recorded successfully",
		SaleID:  result.SaleID,
		Total:   result.Total,
	})
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r, 50, 500)
	sales, err := h.service.ListSales(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (h *Handler) ShowSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.service.ListDebts(r.Context())
	if err != nil {
		h.fail(w, "list debts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, debts)
}

// CustomerDebts serves GET /api/customers/{id}/debts.
func (h *Handler) CustomerDebts(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	debts, err := h.service.CustomerDebts(r.Context(), id)
	if err != nil {
		h.fail(w, "list customer debts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, debts)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.Any("error", err))
	} else {
		h.logger.Info(op+" rejected", slog.String("reason", err.Error()))
	}
	httpx.RespondError(w, err)
}
