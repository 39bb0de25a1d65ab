package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLuminance(t *testing.T) {
	lum, ok := Luminance("#ff0000")
	require.True(t, ok)
	assert.InDelta(t, 0.299, lum, 1e-9)
	assert.Equal(t, "#ffffff", ContrastingTextColor("#ff0000"))

	lum, ok = Luminance("#ffffff")
	require.True(t, ok)
	assert.InDelta(t, 1.0, lum, 1e-9)
	assert.Equal(t, "#181818", ContrastingTextColor("#ffffff"))

	_, ok = Luminance("#zz0000")
	assert.False(t, ok)
	assert.Equal(t, "#ffffff", ContrastingTextColor("not-a-color"))
}

func TestPillColor(t *testing.T) {
	colors := ParsePillColors("Hot:#ff0000,Cold:#ffffff")

	assert.Equal(t, PillStyle{Background: "#ff0000", Text: "#ffffff"}, PillColor("HOT", colors))
	assert.Equal(t, PillStyle{Background: "#ffffff", Text: "#181818"}, PillColor("cold", colors))
	assert.Equal(t, PillStyle{Background: "#e5e5e5", Text: "#444444"}, PillColor("Warm", colors))
	assert.Equal(t, PillStyle{Background: "#e5e5e5", Text: "#444444"}, PillColor("Hot", nil))
	assert.Equal(t, "background-color: #ff0000; color: #ffffff;", PillColor("Hot", colors).CSS())
}
