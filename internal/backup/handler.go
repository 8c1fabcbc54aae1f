package backup

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/rbac"
)

// maxRestoreBytes caps the size of an uploaded backup document.
const maxRestoreBytes = 32 << 20

// Handler serves the backup endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers GET /backup, POST /restore and POST /reset, all
// admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/backup", h.handleExport)
		r.Post("/restore", h.handleRestore)
		r.Post("/reset", h.handleReset)
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Export(r.Context())
	if err != nil {
		h.logger.Error("export backup failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="roz-backup-%s.json"`, doc.ExportedAt.Format("2006-01-02")))
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		httpx.RespondError(w, fmt.Errorf("%w: restore overwrites all inventory and purchases; repeat with confirm=true", httpx.ErrValidation))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRestoreBytes)
	var doc Document
	if err := httpx.DecodeJSON(r, &doc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Restore(r.Context(), doc)
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("restore backup failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		httpx.RespondError(w, fmt.Errorf("%w: reset deletes all inventory and purchases; repeat with confirm=true", httpx.ErrValidation))
		return
	}
	result, err := h.service.Reset(r.Context())
	if err != nil {
		h.logger.Error("reset inventory failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
