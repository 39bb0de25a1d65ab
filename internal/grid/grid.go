// Package grid is the state and view-model engine behind a configurable,
// paginated record grid. It turns a column/filter configuration plus query
// results into render-ready rows, and user interactions into new query
// parameters, selections, owner reassignments and CSV exports.
package grid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/odyssey-erp/listgrid/internal/shared"
)

// Config is the declarative configuration of one grid.
type Config struct {
	Title            string
	Subtitle         string
	Query            string
	ScopeRecordID    string
	PageSize         int
	DefaultSortField string
	Columns          []ColumnSlot
	ShowSearch       bool
	ShowActions      bool
	SelectableRows   bool
	RowActions       bool
	AllowSort        bool
	HoverColor       string
}

// Services are the external collaborators of a grid.
type Services struct {
	Query    QueryService
	Users    UserSearcher
	Owners   OwnerReassigner
	Notifier Notifier
}

// Options tunes timing and instrumentation.
type Options struct {
	Debounce  time.Duration
	Scheduler Scheduler
	Logger    *slog.Logger
	Observer  ReloadObserver
}

const defaultHoverColor = "#f0f7ff"

// Grid wires the components of one grid instance together.
type Grid struct {
	cfg       Config
	filters   *FilterRegistry
	selection *SelectionTracker
	query     *QueryStateManager
	owner     *OwnerReassignmentWorkflow
	notifier  Notifier
	logger    *slog.Logger
}

// New builds a grid. Nothing is loaded until Start or Refresh is called.
func New(cfg Config, svc Services, opts Options) *Grid {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := svc.Notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if cfg.HoverColor == "" {
		cfg.HoverColor = defaultHoverColor
	}
	g := &Grid{
		cfg:       cfg,
		filters:   NewFilterRegistry(cfg.Columns),
		selection: NewSelectionTracker(),
		notifier:  notifier,
		logger:    logger,
	}
	g.query = NewQueryStateManager(svc.Query, g.filters, QueryOptions{
		Query:            cfg.Query,
		ScopeRecordID:    cfg.ScopeRecordID,
		PageSize:         cfg.PageSize,
		DefaultSortField: cfg.DefaultSortField,
		Debounce:         opts.Debounce,
		Scheduler:        opts.Scheduler,
		Logger:           logger,
		Observer:         opts.Observer,
	})
	g.query.OnLoad(func(res LoadResult) {
		ids := make([]string, len(res.Records))
		for i, r := range res.Records {
			ids[i] = r.ID()
		}
		g.selection.SetPage(ids)
	})
	g.owner = NewOwnerReassignmentWorkflow(svc.Users, svc.Owners, g.selection, OwnerWorkflowOptions{
		Debounce:  opts.Debounce,
		Scheduler: opts.Scheduler,
		Notifier:  notifier,
		Logger:    logger,
		OnSuccess: func(ctx context.Context) { g.query.Reload(ctx) },
	})
	return g
}

// Config returns the grid configuration.
func (g *Grid) Config() Config { return g.cfg }

// Filters exposes the filter registry.
func (g *Grid) Filters() *FilterRegistry { return g.filters }

// Selection exposes the selection tracker.
func (g *Grid) Selection() *SelectionTracker { return g.selection }

// Query exposes the query state manager.
func (g *Grid) Query() *QueryStateManager { return g.query }

// Owner exposes the change owner workflow.
func (g *Grid) Owner() *OwnerReassignmentWorkflow { return g.owner }

// Start performs the initial load.
func (g *Grid) Start(ctx context.Context) {
	g.query.Reload(ctx)
}

// Refresh reloads the current page.
func (g *Grid) Refresh(ctx context.Context) {
	g.query.Reload(ctx)
}

// Columns resolves the column descriptors against the latest metadata.
func (g *Grid) Columns() []ColumnDescriptor {
	return ResolveColumns(g.cfg.Columns, g.query.Result().FieldMetadata)
}

// Export writes the loaded page as CSV. Without records nothing is written
// and a warning toast is raised.
func (g *Grid) Export(w io.Writer) (ExportOutcome, error) {
	res := g.query.Result()
	outcome, err := ExportCSV(w, ResolveColumns(g.cfg.Columns, res.FieldMetadata), res.Records)
	switch {
	case err != nil:
		g.logger.Error("grid export failed", slog.Any("error", err))
		g.notifier.Notify(Toast{Title: "Error", Message: "Failed to export data", Variant: ToastError})
		return "", err
	case outcome == ExportSkipped:
		g.notifier.Notify(Toast{Title: "Warning", Message: msgNoRecordsToExport, Variant: ToastWarning})
	default:
		g.notifier.Notify(Toast{Title: "Success", Message: "Export completed", Variant: ToastSuccess})
	}
	return outcome, nil
}

// ExportFilename is the download name for this grid's export.
func (g *Grid) ExportFilename() string {
	return ExportFilename(g.cfg.Title)
}

// OpenChangeOwner opens the change owner modal for the current selection.
func (g *Grid) OpenChangeOwner() error {
	return g.owner.Open()
}

// OpenChangeOwnerForRecord restricts the selection to one record and opens
// the change owner modal.
func (g *Grid) OpenChangeOwnerForRecord(id string) error {
	if g.owner.Submitting() {
		return ErrSubmissionInFlight
	}
	g.selection.RestrictTo(id)
	return g.owner.Open()
}

// Navigation is a request for the host to open a record.
type Navigation struct {
	RecordID string `json:"recordId"`
	Action   string `json:"action"`
	URL      string `json:"url"`
}

// RowAction handles the per-row menu. View and edit return a navigation
// request; changeOwner opens the modal for that record.
func (g *Grid) RowAction(action, recordID string) (*Navigation, error) {
	if recordID == "" {
		return nil, fmt.Errorf("%w: record id required", shared.ErrInvalidInput)
	}
	switch action {
	case "view", "edit":
		return &Navigation{RecordID: recordID, Action: action, URL: "/" + recordID}, nil
	case "changeOwner":
		return nil, g.OpenChangeOwnerForRecord(recordID)
	default:
		return nil, fmt.Errorf("%w: unknown row action %q", shared.ErrInvalidInput, action)
	}
}

// SelectionView summarizes the selection for the toolbar.
type SelectionView struct {
	Count     int      `json:"count"`
	Label     string   `json:"label"`
	AllOnPage bool     `json:"allOnPage"`
	IDs       []string `json:"ids"`
	ShowBulk  bool     `json:"showBulkActions"`
}

// FeatureToggles mirrors the configured feature switches.
type FeatureToggles struct {
	Search         bool `json:"search"`
	Actions        bool `json:"actions"`
	SelectableRows bool `json:"selectableRows"`
	RowActions     bool `json:"rowActions"`
	AllowSort      bool `json:"allowSort"`
}

// GridView is the complete render-ready model of a grid.
type GridView struct {
	Title             string             `json:"title"`
	Subtitle          string             `json:"subtitle,omitempty"`
	HoverStyle        string             `json:"hoverStyle"`
	Features          FeatureToggles     `json:"features"`
	State             QueryState         `json:"state"`
	Columns           []ColumnHeader     `json:"columns"`
	Filters           []FilterDefinition `json:"filters"`
	HasFilters        bool               `json:"hasFilters"`
	HasActiveFilters  bool               `json:"hasActiveFilters"`
	ActiveFilterCount int                `json:"activeFilterCount"`
	Rows              []RowViewModel     `json:"rows"`
	RecordCountLabel  string             `json:"recordCountLabel"`
	Pagination        shared.Pagination  `json:"pagination"`
	Loading           bool               `json:"loading"`
	Error             string             `json:"error,omitempty"`
	HasRecords        bool               `json:"hasRecords"`
	ShowEmptyState    bool               `json:"showEmptyState"`
	Selection         SelectionView      `json:"selection"`
	Owner             OwnerModalView     `json:"owner"`
}

// View derives the render-ready model from the current state. It is
// recomputed on every call and never cached.
func (g *Grid) View() GridView {
	res := g.query.Result()
	state := g.query.State()
	loading := g.query.Loading()
	columns := ResolveColumns(g.cfg.Columns, res.FieldMetadata)
	activeCount := g.filters.ActiveCount()
	selCount := g.selection.Count()

	return GridView{
		Title:      g.cfg.Title,
		Subtitle:   g.cfg.Subtitle,
		HoverStyle: "--row-hover-color: " + g.cfg.HoverColor + ";",
		Features: FeatureToggles{
			Search:         g.cfg.ShowSearch,
			Actions:        g.cfg.ShowActions,
			SelectableRows: g.cfg.SelectableRows,
			RowActions:     g.cfg.RowActions,
			AllowSort:      g.cfg.AllowSort,
		},
		State:             state,
		Columns:           BuildHeaders(columns, state.SortField, state.SortDirection),
		Filters:           g.filters.Definitions(res.FieldMetadata),
		HasFilters:        g.filters.HasFilters(),
		HasActiveFilters:  activeCount > 0,
		ActiveFilterCount: activeCount,
		Rows:              BuildRows(columns, res.FieldMetadata, res.Records, g.selection.snapshot()),
		RecordCountLabel:  RecordCountLabel(res.TotalCount),
		Pagination:        g.query.Pagination(),
		Loading:           loading,
		Error:             res.Err,
		HasRecords:        !loading && res.Err == "" && len(res.Records) > 0,
		ShowEmptyState:    !loading && res.Err == "" && len(res.Records) == 0,
		Selection: SelectionView{
			Count:     selCount,
			Label:     g.selection.CountLabel(),
			AllOnPage: g.selection.AllSelectedOnPage(),
			IDs:       g.selection.IDs(),
			ShowBulk:  g.cfg.SelectableRows && selCount > 0,
		},
		Owner: g.owner.View(),
	}
}
