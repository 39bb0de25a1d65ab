package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/listgrid/internal/shared"
)

func TestLoadDir(t *testing.T) {
	c, err := LoadDir("testdata")
	require.NoError(t, err)
	assert.Equal(t, []string{"contacts", "open_accounts"}, c.Names())

	def, err := c.Get("open_accounts")
	require.NoError(t, err)
	assert.Equal(t, "My Open Accounts", def.Title)
	assert.Equal(t, 25, def.PageSize)
	require.Len(t, def.Columns, 4)
	assert.True(t, def.Columns[1].DisplayAsPill)

	cfg := def.GridConfig("001ABC")
	assert.Equal(t, "001ABC", cfg.ScopeRecordID)
	assert.Equal(t, "Name", cfg.DefaultSortField)
	assert.True(t, cfg.ShowSearch)
	assert.True(t, cfg.SelectableRows)
	assert.Equal(t, "#eef4ff", cfg.HoverColor)
}

func TestParseDefaults(t *testing.T) {
	def, err := LoadFile(filepath.Join("testdata", "contacts.yml"))
	require.NoError(t, err)
	assert.Equal(t, "List View", def.Title)
	assert.Equal(t, 20, def.PageSize)
	assert.False(t, def.Search)
	assert.False(t, def.AllowSort)
}

func TestParseRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"pageSize":  "name: a\npageSize: 500\n",
		"hexcolor":  "name: a\nhoverColor: blue\n",
		"columns":   "name: a\ncolumns:\n" + strings.Repeat("  - field: X\n", 11),
		"field":     "name: a\ncolumns:\n  - label: Orphan\n",
		"blankname": "name: \"bad name\"\n",
	}
	for label, doc := range cases {
		_, err := Parse(label+".yaml", strings.NewReader(doc))
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "%s: %v", label, err)
		assert.ErrorIs(t, err, shared.ErrInvalidInput, label)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse("x.yaml", strings.NewReader("name: x\nsoqlQuery: SELECT Id FROM Account\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soqlQuery")
}

func TestParseAllowsEmptyColumnSlots(t *testing.T) {
	def, err := Parse("x.yaml", strings.NewReader("name: x\ncolumns:\n  - field: Name\n  - field: \"\"\n"))
	require.NoError(t, err)
	assert.Len(t, def.Columns, 2)
}

func TestLoadDirReportsEveryInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("pageSize: 0\nhoverColor: nope\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("pageSize: 999\n"), 0o600))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.yaml")
	assert.Contains(t, err.Error(), "b.yaml")
}

func TestCatalogGetUnknown(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	_, err = c.Get("missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(Definition{Name: "a"}, Definition{Name: "a"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
