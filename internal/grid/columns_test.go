package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumnsSkipsEmptySlotsAndKeepsOrder(t *testing.T) {
	slots := []ColumnSlot{
		{Field: "Name", Label: "Account"},
		{},
		{Field: "Owner.Name"},
		{Field: "   "},
		{Field: "Amount"},
	}
	meta := map[string]FieldMetadata{
		"Owner.Name": {Label: "Owner Name", Type: TypeString},
		"Amount":     {Label: "Amount", Type: TypeCurrency, Sortable: boolPtr(false)},
	}

	cols := ResolveColumns(slots, meta)

	require.Len(t, cols, 3)
	assert.Equal(t, "Account", cols[0].Label)
	assert.Equal(t, TypeString, cols[0].Type)
	assert.True(t, cols[0].Sortable)
	assert.Equal(t, "Owner Name", cols[1].Label)
	assert.True(t, cols[1].IsRelationship())
	assert.Equal(t, TypeCurrency, cols[2].Type)
	assert.False(t, cols[2].Sortable)
}

func TestResolveColumnsLabelFallsBackToField(t *testing.T) {
	cols := ResolveColumns([]ColumnSlot{{Field: "Industry"}}, nil)
	require.Len(t, cols, 1)
	assert.Equal(t, "Industry", cols[0].Label)
}

func TestResolveColumnsCapsSlots(t *testing.T) {
	slots := make([]ColumnSlot, MaxColumnSlots+3)
	for i := range slots {
		slots[i] = ColumnSlot{Field: "F" + string(rune('A'+i))}
	}
	assert.Len(t, ResolveColumns(slots, nil), MaxColumnSlots)
}

func TestParsePillColors(t *testing.T) {
	colors := ParsePillColors(" Open:#00ff00, CLOSED : #ff0000 ,broken, :#123456,Hold:")
	assert.Equal(t, map[string]string{"open": "#00ff00", "closed": "#ff0000"}, colors)
	assert.Empty(t, ParsePillColors(""))
}

func TestSplitFilterValues(t *testing.T) {
	assert.Equal(t, []string{"Hot", "Warm", "Cold"}, SplitFilterValues(" Hot, Warm ,,Cold, "))
	assert.Nil(t, SplitFilterValues("  "))
}
