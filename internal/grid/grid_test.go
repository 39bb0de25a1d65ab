package grid

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/listgrid/internal/shared"
)

func newTestGrid(svc *stubQuery) (*Grid, *ToastQueue, *fakeReassigner) {
	toasts := &ToastQueue{}
	owners := &fakeReassigner{result: ReassignResult{Success: true, SuccessCount: 1}}
	g := New(Config{
		Title:          "My Accounts",
		Query:          "SELECT Id, Name, Rating FROM Account",
		PageSize:       2,
		SelectableRows: true,
		AllowSort:      true,
		ShowSearch:     true,
		Columns: []ColumnSlot{
			{Field: "Name"},
			{Field: "Rating", DisplayAsPill: true, PillColors: "Hot:#ff0000", FilterValues: "Hot,Cold"},
		},
	}, Services{Query: svc, Users: &fakeUsers{results: testCandidates}, Owners: owners, Notifier: toasts}, Options{Scheduler: &fakeScheduler{}})
	return g, toasts, owners
}

func TestGridViewAfterLoad(t *testing.T) {
	svc := &stubQuery{
		pages: map[int][]Record{1: {
			{"Id": "a", "Name": "Acme", "Rating": "Hot"},
			{"Id": "b", "Name": "Globex", "Rating": "Cold"},
		}},
		total: 3,
		meta:  map[string]FieldMetadata{"Rating": {Label: "Account Rating", Type: TypeString}},
	}
	g, _, _ := newTestGrid(svc)
	g.Start(context.Background())

	view := g.View()
	assert.Equal(t, "My Accounts", view.Title)
	assert.Equal(t, "--row-hover-color: #f0f7ff;", view.HoverStyle)
	assert.Equal(t, "3 records", view.RecordCountLabel)
	assert.True(t, view.HasRecords)
	assert.False(t, view.ShowEmptyState)
	require.Len(t, view.Columns, 2)
	assert.Equal(t, "Account Rating", view.Columns[1].Label)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, KindLink, view.Rows[0].Cells[0].Kind)
	assert.Equal(t, KindPill, view.Rows[0].Cells[1].Kind)
	require.Len(t, view.Filters, 1)
	assert.True(t, view.HasFilters)
	assert.False(t, view.HasActiveFilters)
	assert.Equal(t, "Account Rating", view.Filters[0].Label)
	assert.Equal(t, 2, view.Pagination.TotalPages)
	assert.True(t, view.Features.AllowSort)
}

func TestGridSelectionSurvivesPaging(t *testing.T) {
	svc := &stubQuery{pages: map[int][]Record{1: records("a", "b"), 2: records("c")}, total: 3}
	g, _, _ := newTestGrid(svc)
	ctx := context.Background()
	g.Start(ctx)

	g.Selection().SelectAllOnPage()
	assert.True(t, g.View().Selection.AllOnPage)

	g.Query().NextPage(ctx)
	view := g.View()
	assert.False(t, view.Selection.AllOnPage)
	assert.Equal(t, 2, view.Selection.Count)
	assert.True(t, view.Selection.ShowBulk)

	g.Query().PreviousPage(ctx)
	view = g.View()
	assert.True(t, view.Selection.AllOnPage)
	assert.True(t, view.Rows[0].Selected)
}

func TestGridLoadFailureKeepsSelection(t *testing.T) {
	svc := &stubQuery{pages: map[int][]Record{1: records("a", "b")}, total: 2}
	g, _, _ := newTestGrid(svc)
	ctx := context.Background()
	g.Start(ctx)
	g.Selection().Set("a", true)

	svc.fail = "Query timed out"
	g.Refresh(ctx)

	view := g.View()
	assert.Equal(t, "Query timed out", view.Error)
	assert.Empty(t, view.Rows)
	assert.False(t, view.HasRecords)
	assert.False(t, view.ShowEmptyState)
	assert.Equal(t, 1, view.Selection.Count)
}

func TestGridEmptyState(t *testing.T) {
	g, _, _ := newTestGrid(&stubQuery{})
	g.Start(context.Background())

	view := g.View()
	assert.True(t, view.ShowEmptyState)
	assert.Equal(t, "No records", view.RecordCountLabel)
}

func TestGridExportRaisesToasts(t *testing.T) {
	svc := &stubQuery{pages: map[int][]Record{1: {{"Id": "a", "Name": "Acme", "Rating": "Hot"}}}, total: 1}
	g, toasts, _ := newTestGrid(svc)

	var buf bytes.Buffer
	outcome, err := g.Export(&buf)
	require.NoError(t, err)
	assert.Equal(t, ExportSkipped, outcome)
	assert.Equal(t, []Toast{{Title: "Warning", Message: "No records to export", Variant: ToastWarning}}, toasts.Drain())

	g.Start(context.Background())
	outcome, err = g.Export(&buf)
	require.NoError(t, err)
	assert.Equal(t, ExportCompleted, outcome)
	assert.Equal(t, "\"Name\",\"Rating\"\n\"Acme\",\"Hot\"", buf.String())
	assert.Equal(t, ToastSuccess, toasts.Drain()[0].Variant)
	assert.Equal(t, "My_Accounts_export.csv", g.ExportFilename())
}

func TestGridRowActions(t *testing.T) {
	svc := &stubQuery{pages: map[int][]Record{1: records("a", "b")}, total: 2}
	g, _, _ := newTestGrid(svc)
	g.Start(context.Background())
	g.Selection().Set("b", true)

	nav, err := g.RowAction("view", "a")
	require.NoError(t, err)
	assert.Equal(t, "/a", nav.URL)

	nav, err = g.RowAction("changeOwner", "a")
	require.NoError(t, err)
	assert.Nil(t, nav)
	assert.Equal(t, []string{"a"}, g.Selection().IDs())
	assert.True(t, g.View().Owner.Open)

	_, err = g.RowAction("delete", "a")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGridOwnerChangeReloads(t *testing.T) {
	svc := &stubQuery{pages: map[int][]Record{1: records("a", "b")}, total: 2}
	g, toasts, owners := newTestGrid(svc)
	ctx := context.Background()
	g.Start(ctx)
	g.Selection().SelectAllOnPage()
	require.NoError(t, g.OpenChangeOwner())

	sched := g.Owner().debouncer.scheduler.(*fakeScheduler)
	require.NoError(t, g.Owner().SetSearchTerm(ctx, "jane"))
	sched.Fire()
	require.NoError(t, g.Owner().Choose("005A"))

	before := svc.count()
	require.NoError(t, g.Owner().Submit(ctx))

	assert.Equal(t, []string{"a", "b"}, owners.ids)
	assert.Equal(t, before+1, svc.count())
	assert.Equal(t, 0, g.Selection().Count())
	assert.False(t, g.View().Owner.Open)
	assert.Equal(t, ToastSuccess, toasts.Drain()[0].Variant)
}

func TestGridRowChangeOwnerRefusedDuringSubmit(t *testing.T) {
	svc := &stubQuery{pages: map[int][]Record{1: records("a", "b")}, total: 2}
	g, _, owners := newTestGrid(svc)
	ctx := context.Background()
	g.Start(ctx)
	g.Selection().SelectAllOnPage()
	require.NoError(t, g.OpenChangeOwner())

	sched := g.Owner().debouncer.scheduler.(*fakeScheduler)
	require.NoError(t, g.Owner().SetSearchTerm(ctx, "jane"))
	sched.Fire()
	require.NoError(t, g.Owner().Choose("005A"))

	var rowErr error
	var selectedDuring int
	owners.during = func() {
		g.Owner().Close()
		_, rowErr = g.RowAction("changeOwner", "a")
		selectedDuring = g.Selection().Count()
	}
	require.NoError(t, g.Owner().Submit(ctx))

	assert.ErrorIs(t, rowErr, ErrSubmissionInFlight)
	assert.Equal(t, 2, selectedDuring)
	assert.Equal(t, 1, owners.calls)
}

func TestGridWithoutQueryShowsConfigurationError(t *testing.T) {
	g := New(Config{Title: "Empty"}, Services{}, Options{})
	g.Start(context.Background())
	assert.Equal(t, "Please configure a query for this grid.", g.View().Error)
}
