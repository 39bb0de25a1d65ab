package grid

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

// ExportOutcome reports how an export finished.
type ExportOutcome string

const (
	ExportCompleted ExportOutcome = "success"
	ExportSkipped   ExportOutcome = "warning"
)

const msgNoRecordsToExport = "No records to export"

// csvStreamer writes fully quoted CSV lines joined by "\n". encoding/csv only
// quotes fields that need it, so lines are assembled here.
type csvStreamer struct {
	buf          *bufio.Writer
	flushEvery   int
	pendingLines int
	lines        int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	return &csvStreamer{buf: bufio.NewWriterSize(w, csvBufferSize), flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(fields []string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if s.lines > 0 {
		if err := s.buf.WriteByte('\n'); err != nil {
			return err
		}
	}
	for i, field := range fields {
		if i > 0 {
			if err := s.buf.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := s.buf.WriteString(quoteCSV(field)); err != nil {
			return err
		}
	}
	s.lines++
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func quoteCSV(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ExportCSV writes the header and one row per record using the same
// formatting as the view model. With no records nothing is written and the
// outcome is ExportSkipped.
func ExportCSV(w io.Writer, columns []ColumnDescriptor, records []Record) (ExportOutcome, error) {
	if len(records) == 0 {
		return ExportSkipped, nil
	}
	streamer := newCSVStreamer(w)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Label
	}
	if err := streamer.writeRow(header); err != nil {
		return "", fmt.Errorf("grid: export header: %w", err)
	}
	row := make([]string, len(columns))
	for _, record := range records {
		for i, col := range columns {
			row[i] = FormatValue(ResolveField(record, col.Field), col.Type)
		}
		if err := streamer.writeRow(row); err != nil {
			return "", fmt.Errorf("grid: export row: %w", err)
		}
	}
	if err := streamer.Flush(); err != nil {
		return "", fmt.Errorf("grid: export flush: %w", err)
	}
	return ExportCompleted, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFilename derives the download name from the grid title.
func ExportFilename(title string) string {
	return whitespaceRun.ReplaceAllString(title, "_") + "_export.csv"
}
