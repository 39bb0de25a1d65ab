package grid

import "strings"

// MaxColumnSlots bounds the number of configurable column slots.
const MaxColumnSlots = 10

// FieldType tags the data type reported by the query service for a field.
type FieldType string

const (
	TypeString   FieldType = "STRING"
	TypeBoolean  FieldType = "BOOLEAN"
	TypeCurrency FieldType = "CURRENCY"
	TypePercent  FieldType = "PERCENT"
	TypeDate     FieldType = "DATE"
	TypeDateTime FieldType = "DATETIME"
	TypeEmail    FieldType = "EMAIL"
	TypePhone    FieldType = "PHONE"
	TypeURL      FieldType = "URL"
)

// FieldMetadata describes a field as reported by the query service.
type FieldMetadata struct {
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Sortable    *bool     `json:"sortable,omitempty"`
	IsNameField bool      `json:"isNameField"`
}

// ColumnSlot is one declarative column configuration entry.
type ColumnSlot struct {
	Field         string `json:"field" yaml:"field"`
	Label         string `json:"label" yaml:"label"`
	DisplayAsPill bool   `json:"displayAsPill" yaml:"displayAsPill"`
	PillColors    string `json:"pillColors" yaml:"pillColors"`
	FilterValues  string `json:"filterValues" yaml:"filterValues"`
}

// ColumnDescriptor is the resolved, immutable description of a visible column.
type ColumnDescriptor struct {
	Field         string
	Label         string
	Type          FieldType
	Sortable      bool
	DisplayAsPill bool
	PillColors    map[string]string
}

// IsRelationship reports whether the column reads through a related object.
func (c ColumnDescriptor) IsRelationship() bool {
	return strings.Contains(c.Field, ".")
}

// ResolveColumns turns the configured slots into column descriptors. Slots
// without a field path are skipped and at most MaxColumnSlots are considered.
func ResolveColumns(slots []ColumnSlot, meta map[string]FieldMetadata) []ColumnDescriptor {
	if len(slots) > MaxColumnSlots {
		slots = slots[:MaxColumnSlots]
	}
	cols := make([]ColumnDescriptor, 0, len(slots))
	for _, slot := range slots {
		field := strings.TrimSpace(slot.Field)
		if field == "" {
			continue
		}
		md := meta[field]
		fieldType := md.Type
		if fieldType == "" {
			fieldType = TypeString
		}
		cols = append(cols, ColumnDescriptor{
			Field:         field,
			Label:         columnLabel(slot.Label, md, field),
			Type:          fieldType,
			Sortable:      md.Sortable == nil || *md.Sortable,
			DisplayAsPill: slot.DisplayAsPill,
			PillColors:    ParsePillColors(slot.PillColors),
		})
	}
	return cols
}

func columnLabel(configured string, md FieldMetadata, field string) string {
	if configured != "" {
		return configured
	}
	if md.Label != "" {
		return md.Label
	}
	return field
}

// ParsePillColors parses "value1:#hex1,value2:#hex2" into a map keyed by the
// lower-cased value. Entries missing either half are ignored.
func ParsePillColors(spec string) map[string]string {
	colors := make(map[string]string)
	if strings.TrimSpace(spec) == "" {
		return colors
	}
	for _, mapping := range strings.Split(spec, ",") {
		value, color, ok := strings.Cut(mapping, ":")
		if !ok {
			continue
		}
		if extra := strings.Index(color, ":"); extra >= 0 {
			color = color[:extra]
		}
		value = strings.TrimSpace(value)
		color = strings.TrimSpace(color)
		if value == "" || color == "" {
			continue
		}
		colors[strings.ToLower(value)] = color
	}
	return colors
}

// SplitFilterValues splits a comma-separated candidate list, trimming entries
// and dropping empties.
func SplitFilterValues(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			values = append(values, v)
		}
	}
	return values
}
