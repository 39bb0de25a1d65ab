package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/listgrid/internal/platform/httpx"
)

// Handler exposes the user directory for owner lookups outside a grid
// session.
type Handler struct {
	logger    *slog.Logger
	directory *Directory
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, directory *Directory) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, directory: directory}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/search", h.search)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("user search failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}
