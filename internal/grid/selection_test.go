package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionAllOnPageDerived(t *testing.T) {
	s := NewSelectionTracker()
	assert.False(t, s.AllSelectedOnPage(), "empty page is never all selected")

	s.SetPage([]string{"a", "b"})
	s.Set("a", true)
	assert.False(t, s.AllSelectedOnPage())

	s.Toggle("b")
	assert.True(t, s.AllSelectedOnPage())

	s.SetPage([]string{"b", "c"})
	assert.False(t, s.AllSelectedOnPage())

	s.SetPage(nil)
	assert.False(t, s.AllSelectedOnPage())
}

func TestSelectionPersistsAcrossPages(t *testing.T) {
	s := NewSelectionTracker()
	s.SetPage([]string{"1", "2", "3"})
	s.SelectAllOnPage()
	s.SetPage([]string{"4", "5"})
	s.SelectAllOnPage()

	assert.Equal(t, 5, s.Count())
	assert.Equal(t, "5 selected", s.CountLabel())

	s.DeselectAllOnPage()
	assert.Equal(t, []string{"1", "2", "3"}, s.IDs())
}

func TestSelectionToggleAndRestrict(t *testing.T) {
	s := NewSelectionTracker()
	assert.True(t, s.Toggle("x"))
	assert.False(t, s.Toggle("x"))
	assert.Equal(t, "", s.CountLabel())

	s.Set("a", true)
	s.Set("b", true)
	s.RestrictTo("z")
	assert.Equal(t, []string{"z"}, s.IDs())
	assert.Equal(t, "1 selected", s.CountLabel())

	s.Clear()
	assert.Equal(t, 0, s.Count())
	assert.False(t, s.IsSelected("z"))
}
