package grid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/odyssey-erp/listgrid/internal/shared"
)

// SortDirection is the order applied to the sort field.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// DefaultPageSize applies when a grid does not configure one.
const DefaultPageSize = 20

// Record is one row returned by the query service. Relationship fields hold
// nested records.
type Record map[string]any

// ID returns the record identifier.
func (r Record) ID() string {
	switch v := r["Id"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// QueryState is the set of parameters that determine the loaded page.
type QueryState struct {
	SearchTerm    string              `json:"searchTerm"`
	SortField     string              `json:"sortField"`
	SortDirection SortDirection       `json:"sortDirection"`
	Filters       map[string][]string `json:"filters"`
	PageNumber    int                 `json:"pageNumber"`
	PageSize      int                 `json:"pageSize"`
}

// QueryRequest is the structured request sent to the query service.
type QueryRequest struct {
	Query         string              `json:"query"`
	ScopeRecordID string              `json:"scopeRecordId"`
	SearchTerm    string              `json:"searchTerm"`
	SortField     string              `json:"sortField"`
	SortDirection SortDirection       `json:"sortDirection"`
	PageSize      int                 `json:"pageSize"`
	PageNumber    int                 `json:"pageNumber"`
	Filters       map[string][]string `json:"filters"`
}

// FiltersJSON serializes the filter map, "{}" when empty.
func (r QueryRequest) FiltersJSON() (string, error) {
	if len(r.Filters) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(r.Filters)
	if err != nil {
		return "", fmt.Errorf("grid: encode filters: %w", err)
	}
	return string(raw), nil
}

// QueryResponse is the query service reply.
type QueryResponse struct {
	Success       bool                     `json:"success"`
	Records       []Record                 `json:"records"`
	TotalCount    int                      `json:"totalCount"`
	FieldMetadata map[string]FieldMetadata `json:"fieldMetadata"`
	ErrorMessage  string                   `json:"errorMessage"`
}

// QueryService executes grid queries remotely.
type QueryService interface {
	ExecuteQuery(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// LoadResult is the outcome of the most recently applied reload.
type LoadResult struct {
	Records       []Record
	TotalCount    int
	FieldMetadata map[string]FieldMetadata
	Err           string
	Seq           uint64
}

// ReloadOutcome labels how a reload finished.
type ReloadOutcome string

const (
	OutcomeLoaded   ReloadOutcome = "loaded"
	OutcomeFailed   ReloadOutcome = "failed"
	OutcomeStale    ReloadOutcome = "stale"
	OutcomeNotReady ReloadOutcome = "unconfigured"
)

// ReloadObserver receives reload outcomes, e.g. for metrics.
type ReloadObserver interface {
	ObserveReload(outcome ReloadOutcome, elapsed time.Duration)
}

// QueryOptions configures a QueryStateManager.
type QueryOptions struct {
	Query            string
	ScopeRecordID    string
	PageSize         int
	DefaultSortField string
	Debounce         time.Duration
	Scheduler        Scheduler
	Logger           *slog.Logger
	Observer         ReloadObserver
}

// QueryStateManager owns the query parameters, issues reloads and keeps only
// the result of the most recently issued one.
type QueryStateManager struct {
	mu        sync.Mutex
	service   QueryService
	filters   *FilterRegistry
	query     string
	scope     string
	state     QueryState
	result    LoadResult
	loading   bool
	seq       uint64
	debouncer *Debouncer
	listeners []func(LoadResult)
	logger    *slog.Logger
	observer  ReloadObserver
}

// NewQueryStateManager builds a manager reading active filters from filters.
func NewQueryStateManager(service QueryService, filters *FilterRegistry, opts QueryOptions) *QueryStateManager {
	if filters == nil {
		filters = NewFilterRegistry(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &QueryStateManager{
		service: service,
		filters: filters,
		query:   opts.Query,
		scope:   opts.ScopeRecordID,
		state: QueryState{
			SortField:     opts.DefaultSortField,
			SortDirection: SortAsc,
			PageNumber:    1,
			PageSize:      pageSize,
		},
		debouncer: NewDebouncer(opts.Debounce, opts.Scheduler),
		logger:    logger,
		observer:  opts.Observer,
	}
}

// OnLoad registers a listener called after each applied reload.
func (m *QueryStateManager) OnLoad(fn func(LoadResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns a copy of the current query parameters.
func (m *QueryStateManager) State() QueryState {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	state.Filters = m.filters.Active()
	return state
}

// Result returns the most recently applied load result.
func (m *QueryStateManager) Result() LoadResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.result
	res.Records = slices.Clone(m.result.Records)
	res.FieldMetadata = maps.Clone(m.result.FieldMetadata)
	return res
}

// Loading reports whether the latest reload is still outstanding.
func (m *QueryStateManager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// SetSearchTerm applies the search term after the debounce period. A later
// call replaces a pending one.
func (m *QueryStateManager) SetSearchTerm(ctx context.Context, text string) {
	ctx = context.WithoutCancel(ctx)
	m.debouncer.Submit(func() {
		m.applySearch(ctx, text)
	})
}

// ClearSearch drops any pending search input and reloads without a term.
func (m *QueryStateManager) ClearSearch(ctx context.Context) {
	m.SearchNow(ctx, "")
}

// SearchNow drops any pending search input and applies text immediately.
func (m *QueryStateManager) SearchNow(ctx context.Context, text string) {
	m.debouncer.Cancel()
	m.applySearch(ctx, text)
}

func (m *QueryStateManager) applySearch(ctx context.Context, text string) {
	m.mu.Lock()
	m.state.SearchTerm = text
	m.state.PageNumber = 1
	m.mu.Unlock()
	m.Reload(ctx)
}

// SetSort sorts by field, toggling the direction when the field is already
// the sort field and starting ascending otherwise.
func (m *QueryStateManager) SetSort(ctx context.Context, field string) {
	if field == "" {
		return
	}
	m.mu.Lock()
	if m.state.SortField == field {
		if m.state.SortDirection == SortAsc {
			m.state.SortDirection = SortDesc
		} else {
			m.state.SortDirection = SortAsc
		}
	} else {
		m.state.SortField = field
		m.state.SortDirection = SortAsc
	}
	m.state.PageNumber = 1
	m.mu.Unlock()
	m.Reload(ctx)
}

// SetFilter replaces the selected values of one filter.
func (m *QueryStateManager) SetFilter(ctx context.Context, field string, values []string) error {
	if err := m.filters.Set(field, values); err != nil {
		return err
	}
	m.resetAndReload(ctx)
	return nil
}

// SetFilterValue checks or unchecks one candidate value. Malformed events are
// logged and ignored.
func (m *QueryStateManager) SetFilterValue(ctx context.Context, field, value string, checked bool) error {
	if err := m.filters.SetValue(field, value, checked); err != nil {
		if errors.Is(err, ErrMalformedFilterEvent) {
			m.logger.Error("ignoring filter event", slog.String("field", field), slog.String("value", value))
			return nil
		}
		return err
	}
	m.resetAndReload(ctx)
	return nil
}

// ClearFilter removes one filter's constraint.
func (m *QueryStateManager) ClearFilter(ctx context.Context, field string) {
	m.filters.Clear(field)
	m.resetAndReload(ctx)
}

// ClearAllFilters removes every filter constraint.
func (m *QueryStateManager) ClearAllFilters(ctx context.Context) {
	m.filters.ClearAll()
	m.resetAndReload(ctx)
}

func (m *QueryStateManager) resetAndReload(ctx context.Context) {
	m.mu.Lock()
	m.state.PageNumber = 1
	m.mu.Unlock()
	m.Reload(ctx)
}

// TotalPages is ceil(total/pageSize), never less than one.
func (m *QueryStateManager) TotalPages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalPagesLocked()
}

func (m *QueryStateManager) totalPagesLocked() int {
	pages := (m.result.TotalCount + m.state.PageSize - 1) / m.state.PageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// GoToPage navigates to page n, clamped to the valid range.
func (m *QueryStateManager) GoToPage(ctx context.Context, n int) {
	m.mu.Lock()
	total := m.totalPagesLocked()
	if n > total {
		n = total
	}
	if n < 1 {
		n = 1
	}
	m.state.PageNumber = n
	m.mu.Unlock()
	m.Reload(ctx)
}

// FirstPage navigates to page one.
func (m *QueryStateManager) FirstPage(ctx context.Context) {
	m.GoToPage(ctx, 1)
}

// LastPage navigates to the last page computed from the current total.
func (m *QueryStateManager) LastPage(ctx context.Context) {
	m.mu.Lock()
	m.state.PageNumber = m.totalPagesLocked()
	m.mu.Unlock()
	m.Reload(ctx)
}

// NextPage advances one page; a no-op on the last page.
func (m *QueryStateManager) NextPage(ctx context.Context) {
	m.mu.Lock()
	if m.state.PageNumber >= m.totalPagesLocked() {
		m.mu.Unlock()
		return
	}
	m.state.PageNumber++
	m.mu.Unlock()
	m.Reload(ctx)
}

// PreviousPage goes back one page; a no-op on the first page.
func (m *QueryStateManager) PreviousPage(ctx context.Context) {
	m.mu.Lock()
	if m.state.PageNumber <= 1 {
		m.mu.Unlock()
		return
	}
	m.state.PageNumber--
	m.mu.Unlock()
	m.Reload(ctx)
}

// Pagination returns the pagination summary for the current result.
func (m *QueryStateManager) Pagination() shared.Pagination {
	m.mu.Lock()
	defer m.mu.Unlock()
	return shared.NewPagination(m.state.PageNumber, m.state.PageSize, m.result.TotalCount)
}

// Reload executes the query for the current state. It reports whether its
// result was applied; a result is discarded when a newer reload has been
// issued in the meantime. Failures are recorded on the result, not returned.
func (m *QueryStateManager) Reload(ctx context.Context) bool {
	m.mu.Lock()
	if m.query == "" {
		m.seq++
		m.result.Err = msgNoQuery
		m.result.Seq = m.seq
		m.loading = false
		m.mu.Unlock()
		m.observe(OutcomeNotReady, 0)
		return false
	}
	m.seq++
	seq := m.seq
	req := QueryRequest{
		Query:         m.query,
		ScopeRecordID: m.scope,
		SearchTerm:    m.state.SearchTerm,
		SortField:     m.state.SortField,
		SortDirection: m.state.SortDirection,
		PageSize:      m.state.PageSize,
		PageNumber:    m.state.PageNumber,
		Filters:       m.filters.Active(),
	}
	m.loading = true
	m.mu.Unlock()

	start := time.Now()
	result, outcome := m.execute(ctx, req)
	result.Seq = seq

	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		m.logger.Debug("discarding stale grid result", slog.Uint64("seq", seq))
		m.observe(OutcomeStale, time.Since(start))
		return false
	}
	if outcome == OutcomeFailed {
		result.FieldMetadata = m.result.FieldMetadata
	}
	m.result = result
	m.loading = false
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	if outcome == OutcomeFailed {
		m.logger.Warn("grid reload failed", slog.String("error", result.Err))
	}
	m.observe(outcome, time.Since(start))
	for _, fn := range listeners {
		fn(result)
	}
	return true
}

func (m *QueryStateManager) execute(ctx context.Context, req QueryRequest) (LoadResult, ReloadOutcome) {
	if m.service == nil {
		return LoadResult{Err: msgUnexpected}, OutcomeFailed
	}
	resp, err := m.service.ExecuteQuery(ctx, req)
	if err != nil {
		return LoadResult{Err: ErrorMessage(err)}, OutcomeFailed
	}
	if !resp.Success {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = msgLoadFailed
		}
		return LoadResult{Err: msg}, OutcomeFailed
	}
	records := resp.Records
	if records == nil {
		records = []Record{}
	}
	meta := resp.FieldMetadata
	if meta == nil {
		meta = map[string]FieldMetadata{}
	}
	return LoadResult{Records: records, TotalCount: resp.TotalCount, FieldMetadata: meta}, OutcomeLoaded
}

func (m *QueryStateManager) observe(outcome ReloadOutcome, elapsed time.Duration) {
	if m.observer != nil {
		m.observer.ObserveReload(outcome, elapsed)
	}
}
