package grid

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// FilterOption is one candidate value of a quick filter.
type FilterOption struct {
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
	Key     string `json:"key"`
}

// FilterDefinition is the render-ready description of a quick filter.
type FilterDefinition struct {
	Field        string         `json:"field"`
	Label        string         `json:"label"`
	Options      []FilterOption `json:"options"`
	Selected     []string       `json:"selected"`
	ButtonLabel  string         `json:"buttonLabel"`
	HasSelection bool           `json:"hasSelection"`
	Open         bool           `json:"open"`
}

type filterSpec struct {
	field  string
	label  string
	values []string
}

// FilterRegistry tracks the available quick filters, the selected values per
// field and which dropdown, if any, is open.
type FilterRegistry struct {
	mu       sync.Mutex
	specs    []filterSpec
	selected map[string][]string
	open     string
}

// NewFilterRegistry derives the available filters from the column slots. A
// slot without candidate values yields no filter.
func NewFilterRegistry(slots []ColumnSlot) *FilterRegistry {
	if len(slots) > MaxColumnSlots {
		slots = slots[:MaxColumnSlots]
	}
	r := &FilterRegistry{selected: make(map[string][]string)}
	for _, slot := range slots {
		field := strings.TrimSpace(slot.Field)
		if field == "" {
			continue
		}
		values := SplitFilterValues(slot.FilterValues)
		if len(values) == 0 {
			continue
		}
		r.specs = append(r.specs, filterSpec{field: field, label: slot.Label, values: values})
	}
	return r
}

// Definitions renders the filters in configuration order.
func (r *FilterRegistry) Definitions(meta map[string]FieldMetadata) []FilterDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	defs := make([]FilterDefinition, 0, len(r.specs))
	for _, spec := range r.specs {
		chosen := r.selected[spec.field]
		options := make([]FilterOption, len(spec.values))
		ordered := make([]string, 0, len(chosen))
		for i, v := range spec.values {
			checked := slices.Contains(chosen, v)
			options[i] = FilterOption{Value: v, Checked: checked, Key: spec.field + "-" + v}
			if checked {
				ordered = append(ordered, v)
			}
		}
		defs = append(defs, FilterDefinition{
			Field:        spec.field,
			Label:        columnLabel(spec.label, meta[spec.field], spec.field),
			Options:      options,
			Selected:     ordered,
			ButtonLabel:  filterButtonLabel(ordered),
			HasSelection: len(ordered) > 0,
			Open:         r.open == spec.field,
		})
	}
	return defs
}

func filterButtonLabel(selected []string) string {
	switch len(selected) {
	case 0:
		return "All"
	case 1:
		return selected[0]
	default:
		return fmt.Sprintf("%d selected", len(selected))
	}
}

// SetValue checks or unchecks one candidate value.
func (r *FilterRegistry) SetValue(field, value string, checked bool) error {
	if field == "" || value == "" {
		return ErrMalformedFilterEvent
	}
	if checked {
		return r.Select(field, value)
	}
	return r.Deselect(field, value)
}

// Select adds a value to the field's selection. Selecting an already
// selected value is a no-op.
func (r *FilterRegistry) Select(field, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.spec(field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, field)
	}
	if !slices.Contains(spec.values, value) {
		return fmt.Errorf("%w: %s=%s", ErrUnknownFilterValue, field, value)
	}
	if slices.Contains(r.selected[field], value) {
		return nil
	}
	r.selected[field] = append(slices.Clone(r.selected[field]), value)
	return nil
}

// Deselect removes a value from the field's selection. Removing the last
// value removes the field entirely.
func (r *FilterRegistry) Deselect(field, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spec(field); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, field)
	}
	remaining := slices.DeleteFunc(slices.Clone(r.selected[field]), func(v string) bool { return v == value })
	r.store(field, remaining)
	return nil
}

// Set replaces the field's selection. Unknown candidates are rejected and
// duplicates collapse; an empty list clears the field.
func (r *FilterRegistry) Set(field string, values []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.spec(field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, field)
	}
	next := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(spec.values, v) {
			return fmt.Errorf("%w: %s=%s", ErrUnknownFilterValue, field, v)
		}
		if !slices.Contains(next, v) {
			next = append(next, v)
		}
	}
	r.store(field, next)
	return nil
}

// Clear removes any selection for the field.
func (r *FilterRegistry) Clear(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.selected, field)
}

// ClearAll removes every selection and closes the open dropdown.
func (r *FilterRegistry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = make(map[string][]string)
	r.open = ""
}

// Active returns a copy of the active filter map. Fields without a selection
// are absent.
func (r *FilterRegistry) Active() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.selected))
	for field, values := range r.selected {
		out[field] = slices.Clone(values)
	}
	return out
}

// ActiveCount returns the number of constrained fields.
func (r *FilterRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.selected)
}

// HasFilters reports whether any quick filter is configured.
func (r *FilterRegistry) HasFilters() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.specs) > 0
}

// Toggle opens the field's dropdown, closing any other, or closes it when it
// is already open.
func (r *FilterRegistry) Toggle(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open == field {
		r.open = ""
		return
	}
	if _, ok := r.spec(field); ok {
		r.open = field
	}
}

// CloseAll closes the open dropdown, e.g. on a click outside the filter bar.
func (r *FilterRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = ""
}

// OpenField returns the field whose dropdown is open, or "".
func (r *FilterRegistry) OpenField() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

func (r *FilterRegistry) spec(field string) (filterSpec, bool) {
	for _, s := range r.specs {
		if s.field == field {
			return s, true
		}
	}
	return filterSpec{}, false
}

func (r *FilterRegistry) store(field string, values []string) {
	if len(values) == 0 {
		delete(r.selected, field)
		return
	}
	r.selected[field] = values
}
