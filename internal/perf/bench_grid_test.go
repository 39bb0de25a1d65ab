package perf

import (
	"context"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/odyssey-erp/listgrid/internal/grid"
)

type pageQuery struct {
	records []grid.Record
	meta    map[string]grid.FieldMetadata
}

func (q pageQuery) ExecuteQuery(context.Context, grid.QueryRequest) (grid.QueryResponse, error) {
	return grid.QueryResponse{Success: true, Records: q.records, TotalCount: 10 * len(q.records), FieldMetadata: q.meta}, nil
}

// fullGrid loads a maximal page: 200 rows across all ten column slots.
func fullGrid(tb testing.TB) *grid.Grid {
	tb.Helper()
	fields := []struct {
		name string
		typ  grid.FieldType
	}{
		{"Name", grid.TypeString},
		{"Owner.Name", grid.TypeString},
		{"Rating", grid.TypeString},
		{"Active", grid.TypeBoolean},
		{"Revenue", grid.TypeCurrency},
		{"Share", grid.TypePercent},
		{"Created", grid.TypeDateTime},
		{"Email", grid.TypeEmail},
		{"Phone", grid.TypePhone},
		{"Website", grid.TypeURL},
	}
	slots := make([]grid.ColumnSlot, len(fields))
	meta := make(map[string]grid.FieldMetadata, len(fields))
	for i, f := range fields {
		slots[i] = grid.ColumnSlot{Field: f.name}
		meta[f.name] = grid.FieldMetadata{Label: f.name, Type: f.typ}
	}
	slots[2].DisplayAsPill = true
	slots[2].PillColors = "Hot:#ff0000,Warm:#ffaa00,Cold:#0000ff"
	slots[2].FilterValues = "Hot,Warm,Cold"

	records := make([]grid.Record, 200)
	for i := range records {
		records[i] = grid.Record{
			"Id":      fmt.Sprintf("001%05d", i),
			"Name":    fmt.Sprintf("Account %d", i),
			"Owner":   map[string]any{"Id": "005A", "Name": "Jane Doe"},
			"Rating":  []string{"Hot", "Warm", "Cold"}[i%3],
			"Active":  i%2 == 0,
			"Revenue": float64(i) * 1250.5,
			"Share":   float64(i%100) / 3,
			"Created": "2024-05-01T10:00:00Z",
			"Email":   "a@example.com",
			"Phone":   "+1 555 0100",
			"Website": "https://example.com/accounts/with/a/very/long/path",
		}
	}
	g := grid.New(grid.Config{
		Title:          "Benchmark",
		Query:          "SELECT Id FROM Account",
		PageSize:       200,
		SelectableRows: true,
		Columns:        slots,
	}, grid.Services{Query: pageQuery{records: records, meta: meta}}, grid.Options{})
	g.Start(context.Background())
	g.Selection().SelectAllOnPage()
	return g
}

func BenchmarkGridView(b *testing.B) {
	g := fullGrid(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.View()
	}
}

func BenchmarkGridExportCSV(b *testing.B) {
	g := fullGrid(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := g.Export(io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}

func TestGridViewLatencyTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("latency sampling skipped in short mode")
	}
	g := fullGrid(t)
	samples := make([]time.Duration, 20)
	for i := range samples {
		start := time.Now()
		view := g.View()
		samples[i] = time.Since(start)
		if len(view.Rows) != 200 {
			t.Fatalf("expected 200 rows, got %d", len(view.Rows))
		}
	}
	const threshold = 250 * time.Millisecond
	if p95 := percentile95(samples); p95 > threshold {
		t.Fatalf("view latency regression: p95=%s threshold=%s", p95, threshold)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
