package grid

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CellKind is the rendering variant chosen for a cell.
type CellKind string

const (
	KindText     CellKind = "text"
	KindLink     CellKind = "link"
	KindBoolean  CellKind = "boolean"
	KindCurrency CellKind = "currency"
	KindPercent  CellKind = "percent"
	KindDate     CellKind = "date"
	KindDateTime CellKind = "datetime"
	KindEmail    CellKind = "email"
	KindPhone    CellKind = "phone"
	KindURL      CellKind = "url"
	KindPill     CellKind = "pill"
)

var kindByType = map[FieldType]CellKind{
	TypeBoolean:  KindBoolean,
	TypeCurrency: KindCurrency,
	TypePercent:  KindPercent,
	TypeDate:     KindDate,
	TypeDateTime: KindDateTime,
	TypeEmail:    KindEmail,
	TypePhone:    KindPhone,
	TypeURL:      KindURL,
}

// CellViewModel is the display descriptor of one record field.
type CellViewModel struct {
	Key          string     `json:"key"`
	Field        string     `json:"field"`
	Raw          any        `json:"raw"`
	Display      string     `json:"display"`
	Kind         CellKind   `json:"kind"`
	IsLink       bool       `json:"isLink"`
	LinkURL      string     `json:"linkUrl,omitempty"`
	LinkRecordID string     `json:"linkRecordId,omitempty"`
	BooleanIcon  string     `json:"booleanIcon,omitempty"`
	BooleanClass string     `json:"booleanClass,omitempty"`
	EmailHref    string     `json:"emailHref,omitempty"`
	PhoneHref    string     `json:"phoneHref,omitempty"`
	URLDisplay   string     `json:"urlDisplay,omitempty"`
	Pill         *PillStyle `json:"pill,omitempty"`
	PillCSS      string     `json:"pillStyle,omitempty"`
}

// RowViewModel is the display descriptor of one record.
type RowViewModel struct {
	ID       string          `json:"id"`
	Cells    []CellViewModel `json:"cells"`
	Selected bool            `json:"selected"`
	RowClass string          `json:"rowClass"`
}

// ColumnHeader describes a column header including its sort indicator.
type ColumnHeader struct {
	Field        string    `json:"field"`
	Label        string    `json:"label"`
	Type         FieldType `json:"type"`
	Relationship bool      `json:"relationship"`
	Sortable     bool      `json:"sortable"`
	Sorted       bool      `json:"sorted"`
	SortIcon     string    `json:"sortIcon"`
	SortTitle    string    `json:"sortTitle"`
}

// BuildHeaders renders the column headers for the current sort.
func BuildHeaders(columns []ColumnDescriptor, sortField string, dir SortDirection) []ColumnHeader {
	headers := make([]ColumnHeader, len(columns))
	for i, col := range columns {
		sorted := col.Field == sortField
		icon := "utility:sort"
		if sorted {
			icon = "utility:arrowup"
			if dir == SortDesc {
				icon = "utility:arrowdown"
			}
		}
		headers[i] = ColumnHeader{
			Field:        col.Field,
			Label:        col.Label,
			Type:         col.Type,
			Relationship: col.IsRelationship(),
			Sortable:     col.Sortable,
			Sorted:       sorted,
			SortIcon:     icon,
			SortTitle:    "Sort by " + col.Label,
		}
	}
	return headers
}

// BuildRows combines columns, field metadata, records and the selection into
// row view models. Records keep the order returned by the query service.
func BuildRows(columns []ColumnDescriptor, meta map[string]FieldMetadata, records []Record, selected map[string]struct{}) []RowViewModel {
	rows := make([]RowViewModel, len(records))
	for i, record := range records {
		id := record.ID()
		cells := make([]CellViewModel, len(columns))
		for j, col := range columns {
			cells[j] = BuildCell(col, meta[col.Field], record, j)
		}
		_, isSelected := selected[id]
		rowClass := "table-row"
		if isSelected {
			rowClass = "table-row selected-row"
		}
		rows[i] = RowViewModel{ID: id, Cells: cells, Selected: isSelected, RowClass: rowClass}
	}
	return rows
}

// BuildCell derives the display descriptor of one field. A pill is exclusive
// with every other specialized rendering.
func BuildCell(col ColumnDescriptor, md FieldMetadata, record Record, index int) CellViewModel {
	value := ResolveField(record, col.Field)
	display := FormatValue(value, col.Type)
	cell := CellViewModel{
		Key:     record.ID() + "-" + col.Field + "-" + strconv.Itoa(index),
		Field:   col.Field,
		Raw:     value,
		Display: display,
		Kind:    KindText,
	}

	if linkID := RelatedRecordID(record, col.Field); linkID != "" {
		cell.LinkRecordID = linkID
		cell.LinkURL = "/" + linkID
	}

	if col.DisplayAsPill && truthy(value) {
		style := PillColor(value, col.PillColors)
		cell.Kind = KindPill
		cell.Pill = &style
		cell.PillCSS = style.CSS()
		return cell
	}

	if isLinkColumn(col, md) {
		cell.IsLink = true
		cell.Kind = KindLink
		return cell
	}

	if kind, ok := kindByType[col.Type]; ok {
		cell.Kind = kind
	}
	switch cell.Kind {
	case KindBoolean:
		cell.BooleanIcon, cell.BooleanClass = "utility:close", "boolean-false"
		if truthy(value) {
			cell.BooleanIcon, cell.BooleanClass = "utility:check", "boolean-true"
		}
	case KindEmail:
		if truthy(value) {
			cell.EmailHref = "mailto:" + display
		}
	case KindPhone:
		if truthy(value) {
			cell.PhoneHref = "tel:" + display
		}
	case KindURL:
		cell.URLDisplay = TruncateURL(stringify(value))
	}
	return cell
}

func isLinkColumn(col ColumnDescriptor, md FieldMetadata) bool {
	return md.IsNameField || col.Field == "Name" || strings.HasSuffix(col.Field, ".Name")
}

var countPrinter = message.NewPrinter(language.English)

// RecordCountLabel renders the total count for the header.
func RecordCountLabel(total int) string {
	switch total {
	case 0:
		return "No records"
	case 1:
		return "1 record"
	default:
		return countPrinter.Sprintf("%d records", total)
	}
}
