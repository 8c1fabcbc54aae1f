package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/roz-pos/roz/internal/auth"
	"github.com/roz-pos/roz/internal/backup"
	"github.com/roz-pos/roz/internal/customers"
	"github.com/roz-pos/roz/internal/dailybook"
	"github.com/roz-pos/roz/internal/inventory"
	"github.com/roz-pos/roz/internal/observability"
	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/procurement"
	"github.com/roz-pos/roz/internal/rbac"
	"github.com/roz-pos/roz/internal/sales"
	"github.com/roz-pos/roz/internal/shared"
	"github.com/roz-pos/roz/internal/users"
	"github.com/roz-pos/roz/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	RBACMiddleware     rbac.Middleware
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	CustomersHandler   *customers.Handler
	DailyBookHandler   *dailybook.Handler
	SalesHandler       *sales.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	BackupHandler      *backup.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		r.Route("/customers", func(r chi.Router) {
			params.CustomersHandler.MountRoutes(r)
			r.With(params.RBACMiddleware.RequireAdmin()).Get("/{id}/debts", params.SalesHandler.CustomerDebts)
		})
		r.Route("/daily-book", params.DailyBookHandler.MountRoutes)
		r.Route("/products", params.InventoryHandler.MountRoutes)
		params.SalesHandler.MountRoutes(r)
		params.ProcurementHandler.MountRoutes(r)
		if params.BackupHandler != nil {
			params.BackupHandler.MountRoutes(r)
		}
	})

	return r
}
