// Package gridhttp exposes grid sessions as JSON endpoints.
package gridhttp

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/listgrid/internal/catalog"
	"github.com/odyssey-erp/listgrid/internal/grid"
	"github.com/odyssey-erp/listgrid/internal/platform/httpx"
)

type definitionSource interface {
	Get(name string) (catalog.Definition, error)
}

// Dependencies are the services shared by every grid session.
type Dependencies struct {
	Query   grid.QueryService
	Users   grid.UserSearcher
	Owners  grid.OwnerReassigner
	Options grid.Options
}

// Handler serves the grid API.
type Handler struct {
	logger   *slog.Logger
	defs     definitionSource
	registry *Registry
	deps     Dependencies
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, defs definitionSource, registry *Registry, deps Dependencies) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Options.Logger == nil {
		deps.Options.Logger = logger
	}
	return &Handler{
		logger:   logger,
		defs:     defs,
		registry: registry,
		deps:     deps,
		validate: validator.New(),
	}
}

// MountRoutes registers grid routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Route("/{gridID}", func(r chi.Router) {
		r.Get("/", h.show)
		r.Delete("/", h.destroy)
		r.Get("/export.csv", h.export)

		r.Post("/refresh", h.refresh)
		r.Post("/search", h.search)
		r.Post("/sort", h.sort)
		r.Post("/page", h.page)

		r.Post("/filters", h.setFilter)
		r.Post("/filters/clear", h.clearFilters)
		r.Post("/filters/toggle", h.toggleFilter)
		r.Post("/filters/close", h.closeFilters)

		r.Post("/selection", h.selectRow)
		r.Post("/selection/page", h.selectPage)
		r.Post("/selection/clear", h.clearSelection)

		r.Post("/rows/{recordID}/{action}", h.rowAction)

		r.Post("/owner/open", h.openOwner)
		r.Post("/owner/close", h.closeOwner)
		r.Post("/owner/search", h.searchOwner)
		r.Post("/owner/choose", h.chooseOwner)
		r.Post("/owner/submit", h.submitOwner)
	})
}

type gridResponse struct {
	ID         string           `json:"id"`
	Definition string           `json:"definition"`
	View       grid.GridView    `json:"view"`
	Toasts     []grid.Toast     `json:"toasts"`
	Navigation *grid.Navigation `json:"navigation,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, s *Session, nav *grid.Navigation) {
	toasts := s.Toasts.Drain()
	if toasts == nil {
		toasts = []grid.Toast{}
	}
	httpx.JSON(w, status, gridResponse{
		ID:         s.ID,
		Definition: s.Definition,
		View:       s.Grid.View(),
		Toasts:     toasts,
		Navigation: nav,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	err = classify(err)
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrConflict) {
		h.logger.Error("grid request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// classify maps grid errors onto the HTTP sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, grid.ErrMalformedFilterEvent),
		errors.Is(err, grid.ErrUnknownFilter),
		errors.Is(err, grid.ErrUnknownFilterValue),
		errors.Is(err, grid.ErrUnknownCandidate):
		return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	case errors.Is(err, grid.ErrSubmissionInFlight),
		errors.Is(err, grid.ErrNothingToSubmit),
		errors.Is(err, grid.ErrModalClosed):
		return fmt.Errorf("%w: %w", httpx.ErrConflict, err)
	default:
		return err
	}
}

// decode reads and validates the body. An empty body decodes to the zero
// value before validation.
func (h *Handler) decode(r *http.Request, dst any) error {
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, dst); err != nil {
			return err
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Field() + " " + fe.Tag()
			}
			return fmt.Errorf("%w: %s", httpx.ErrValidation, strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// session resolves the grid and decodes the body into dst when non-nil.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, dst any) (*Session, bool) {
	s, err := h.registry.Get(chi.URLParam(r, "gridID"))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if dst != nil {
		if err := h.decode(r, dst); err != nil {
			h.fail(w, r, err)
			return nil, false
		}
	}
	return s, true
}

type createRequest struct {
	Definition    string `json:"definition" validate:"required"`
	ScopeRecordID string `json:"scopeRecordId" validate:"max=64"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	def, err := h.defs.Get(req.Definition)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	toasts := &grid.ToastQueue{}
	g := grid.New(def.GridConfig(req.ScopeRecordID), grid.Services{
		Query:    h.deps.Query,
		Users:    h.deps.Users,
		Owners:   h.deps.Owners,
		Notifier: toasts,
	}, h.deps.Options)
	s, err := h.registry.Open(def.Name, g, toasts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	g.Start(r.Context())
	h.logger.Info("grid opened", slog.String("id", s.ID), slog.String("definition", def.Name))
	h.respond(w, http.StatusCreated, s, nil)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r, nil); ok {
		h.respond(w, http.StatusOK, s, nil)
	}
}

func (h *Handler) destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(chi.URLParam(r, "gridID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, nil)
	if !ok {
		return
	}
	s.Grid.Refresh(r.Context())
	h.respond(w, http.StatusOK, s, nil)
}

type searchRequest struct {
	Term string `json:"term" validate:"max=255"`
}

// search debounces non-empty input; clearing the box reloads immediately.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	if req.Term == "" {
		s.Grid.Query().ClearSearch(r.Context())
	} else {
		s.Grid.Query().SetSearchTerm(r.Context(), req.Term)
	}
	h.respond(w, http.StatusAccepted, s, nil)
}

type sortRequest struct {
	Field string `json:"field" validate:"required"`
}

func (h *Handler) sort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	if !s.Grid.Config().AllowSort {
		h.fail(w, r, fmt.Errorf("%w: sorting is disabled for this grid", httpx.ErrConflict))
		return
	}
	s.Grid.Query().SetSort(r.Context(), req.Field)
	h.respond(w, http.StatusOK, s, nil)
}

type pageRequest struct {
	Page   int    `json:"page" validate:"required_without=Action,omitempty,min=1"`
	Action string `json:"action" validate:"required_without=Page,omitempty,oneof=first last next previous"`
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	q := s.Grid.Query()
	switch req.Action {
	case "first":
		q.FirstPage(r.Context())
	case "last":
		q.LastPage(r.Context())
	case "next":
		q.NextPage(r.Context())
	case "previous":
		q.PreviousPage(r.Context())
	default:
		q.GoToPage(r.Context(), req.Page)
	}
	h.respond(w, http.StatusOK, s, nil)
}

type filterRequest struct {
	Field   string   `json:"field" validate:"required"`
	Value   string   `json:"value"`
	Checked bool     `json:"checked"`
	Values  []string `json:"values" validate:"omitempty,dive,required"`
}

// setFilter replaces the selection when values is present and toggles one
// candidate otherwise.
func (h *Handler) setFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	var err error
	if req.Values != nil {
		err = s.Grid.Query().SetFilter(r.Context(), req.Field, req.Values)
	} else {
		err = s.Grid.Query().SetFilterValue(r.Context(), req.Field, req.Value, req.Checked)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, s, nil)
}

type fieldRequest struct {
	Field string `json:"field"`
}

func (h *Handler) clearFilters(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	if req.Field == "" {
		s.Grid.Query().ClearAllFilters(r.Context())
	} else {
		s.Grid.Query().ClearFilter(r.Context(), req.Field)
	}
	h.respond(w, http.StatusOK, s, nil)
}

type toggleRequest struct {
	Field string `json:"field" validate:"required"`
}

func (h *Handler) toggleFilter(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	s.Grid.Filters().Toggle(req.Field)
	h.respond(w, http.StatusOK, s, nil)
}

func (h *Handler) closeFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, nil)
	if !ok {
		return
	}
	s.Grid.Filters().CloseAll()
	h.respond(w, http.StatusOK, s, nil)
}

type selectRequest struct {
	ID       string `json:"id" validate:"required"`
	Selected bool   `json:"selected"`
}

func (h *Handler) selectRow(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	s.Grid.Selection().Set(req.ID, req.Selected)
	h.respond(w, http.StatusOK, s, nil)
}

type selectPageRequest struct {
	Selected bool `json:"selected"`
}

func (h *Handler) selectPage(w http.ResponseWriter, r *http.Request) {
	var req selectPageRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	if req.Selected {
		s.Grid.Selection().SelectAllOnPage()
	} else {
		s.Grid.Selection().DeselectAllOnPage()
	}
	h.respond(w, http.StatusOK, s, nil)
}

func (h *Handler) clearSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, nil)
	if !ok {
		return
	}
	s.Grid.Selection().Clear()
	h.respond(w, http.StatusOK, s, nil)
}

func (h *Handler) rowAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, nil)
	if !ok {
		return
	}
	nav, err := s.Grid.RowAction(chi.URLParam(r, "action"), chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, s, nav)
}

type openOwnerRequest struct {
	RecordID string `json:"recordId"`
}

func (h *Handler) openOwner(w http.ResponseWriter, r *http.Request) {
	var req openOwnerRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	var err error
	if req.RecordID != "" {
		err = s.Grid.OpenChangeOwnerForRecord(req.RecordID)
	} else {
		err = s.Grid.OpenChangeOwner()
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, s, nil)
}

func (h *Handler) closeOwner(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, nil)
	if !ok {
		return
	}
	s.Grid.Owner().Close()
	h.respond(w, http.StatusOK, s, nil)
}

func (h *Handler) searchOwner(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	if err := s.Grid.Owner().SetSearchTerm(r.Context(), req.Term); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusAccepted, s, nil)
}

type chooseRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (h *Handler) chooseOwner(w http.ResponseWriter, r *http.Request) {
	var req chooseRequest
	s, ok := h.session(w, r, &req)
	if !ok {
		return
	}
	if err := s.Grid.Owner().Choose(req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, s, nil)
}

func (h *Handler) submitOwner(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, nil)
	if !ok {
		return
	}
	if err := s.Grid.Owner().Submit(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, s, nil)
}

// export streams the loaded page. Without records it answers 204 and the
// warning toast is delivered with the next JSON response.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, nil)
	if !ok {
		return
	}
	if len(s.Grid.Query().Result().Records) == 0 {
		_, _ = s.Grid.Export(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	contentType := mime.TypeByExtension(".csv")
	if contentType == "" {
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": s.Grid.ExportFilename()}))
	if _, err := s.Grid.Export(w); err != nil {
		h.logger.Error("grid export interrupted", slog.String("id", s.ID), slog.Any("error", err))
	}
}
