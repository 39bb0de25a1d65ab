package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	gridhttp "github.com/odyssey-erp/listgrid/internal/grid/http"
	"github.com/odyssey-erp/listgrid/internal/observability"
	"github.com/odyssey-erp/listgrid/internal/platform/httpx"
	"github.com/odyssey-erp/listgrid/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	GridHandler  *gridhttp.Handler
	UsersHandler *users.Handler
	Metrics      *observability.Metrics
	// Ready reports dependency health for /readyz. Nil means always ready.
	Ready func(r *http.Request) error
}

// NewRouter constructs the chi.Router with listgrid defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Not Ready", err.Error())
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if params.GridHandler != nil {
		r.Route("/grids", params.GridHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
