// Package catalog loads grid definitions from YAML files.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/listgrid/internal/grid"
	"github.com/odyssey-erp/listgrid/internal/shared"
)

const defaultTitle = "List View"

// Definition is the declarative configuration of one grid.
type Definition struct {
	Name           string            `yaml:"name" validate:"required,max=64,excludesall=/ "`
	Title          string            `yaml:"title" validate:"max=120"`
	Subtitle       string            `yaml:"subtitle" validate:"max=240"`
	Query          string            `yaml:"query"`
	DefaultSort    string            `yaml:"defaultSort"`
	PageSize       int               `yaml:"pageSize" validate:"omitempty,min=1,max=200"`
	HoverColor     string            `yaml:"hoverColor" validate:"omitempty,hexcolor"`
	Search         bool              `yaml:"search"`
	Actions        bool              `yaml:"actions"`
	SelectableRows bool              `yaml:"selectableRows"`
	RowActions     bool              `yaml:"rowActions"`
	AllowSort      bool              `yaml:"allowSort"`
	Columns        []grid.ColumnSlot `yaml:"columns" validate:"max=10"`
}

// ValidationError lists the offending fields of an invalid definition.
type ValidationError struct {
	Source string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("catalog: invalid definition %s: %s", e.Source, strings.Join(parts, "; "))
}

// Unwrap lets callers match shared.ErrInvalidInput.
func (e *ValidationError) Unwrap() error { return shared.ErrInvalidInput }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a single definition. Unknown keys are rejected.
func Parse(source string, r io.Reader) (Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return Definition{}, &ValidationError{Source: source, Fields: map[string]string{"document": "empty"}}
		}
		return Definition{}, fmt.Errorf("catalog: decode %s: %w", source, err)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if def.Title == "" {
		def.Title = defaultTitle
	}
	if def.PageSize == 0 {
		def.PageSize = grid.DefaultPageSize
	}
	if err := check(source, def); err != nil {
		return Definition{}, err
	}
	return def, nil
}

func check(source string, def Definition) error {
	fields := make(map[string]string)
	if err := validate.Struct(def); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("catalog: validate %s: %w", source, err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	for i, col := range def.Columns {
		if strings.TrimSpace(col.Field) == "" && (col.Label != "" || col.FilterValues != "" || col.PillColors != "") {
			fields[fmt.Sprintf("Columns[%d].Field", i)] = "required"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Source: source, Fields: fields}
	}
	return nil
}

// GridConfig converts the definition for a grid scoped to scopeRecordID.
func (d Definition) GridConfig(scopeRecordID string) grid.Config {
	return grid.Config{
		Title:            d.Title,
		Subtitle:         d.Subtitle,
		Query:            d.Query,
		ScopeRecordID:    scopeRecordID,
		PageSize:         d.PageSize,
		DefaultSortField: d.DefaultSort,
		Columns:          slices.Clone(d.Columns),
		ShowSearch:       d.Search,
		ShowActions:      d.Actions,
		SelectableRows:   d.SelectableRows,
		RowActions:       d.RowActions,
		AllowSort:        d.AllowSort,
		HoverColor:       d.HoverColor,
	}
}

// Catalog holds definitions by name.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// New builds a catalog from already parsed definitions.
func New(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, dup := c.defs[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate grid definition %q", shared.ErrInvalidInput, d.Name)
		}
		c.defs[d.Name] = d
	}
	return c, nil
}

// LoadFile parses one definition file.
func LoadFile(path string) (Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(path, bytes.NewReader(raw))
}

// LoadDir parses every *.yaml and *.yml file in dir. All invalid files are
// reported together.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read dir %s: %w", dir, err)
	}
	var (
		defs []Definition
		errs []error
	)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		def, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		defs = append(defs, def)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return New(defs...)
}

// Get returns the named definition.
func (c *Catalog) Get(name string) (Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("grid definition %q: %w", name, shared.ErrNotFound)
	}
	return def, nil
}

// Names lists the definitions in lexical order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
