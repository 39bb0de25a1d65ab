package grid

import (
	"strconv"
	"strings"
)

const (
	pillDefaultBackground = "#e5e5e5"
	pillDefaultText       = "#444444"
	textOnDark            = "#ffffff"
	textOnLight           = "#181818"
	luminanceThreshold    = 0.5
)

// PillStyle is the resolved coloring of a pill cell.
type PillStyle struct {
	Background string `json:"background"`
	Text       string `json:"text"`
}

// CSS renders the style attribute for the pill.
func (p PillStyle) CSS() string {
	return "background-color: " + p.Background + "; color: " + p.Text + ";"
}

// PillColor looks the value up case-insensitively in the color map and
// falls back to light gray with dark text.
func PillColor(value any, colors map[string]string) PillStyle {
	if !truthy(value) || len(colors) == 0 {
		return PillStyle{Background: pillDefaultBackground, Text: pillDefaultText}
	}
	bg, ok := colors[strings.ToLower(stringify(value))]
	if !ok {
		return PillStyle{Background: pillDefaultBackground, Text: pillDefaultText}
	}
	return PillStyle{Background: bg, Text: ContrastingTextColor(bg)}
}

// Luminance computes (0.299R + 0.587G + 0.114B) / 255 for a #rrggbb color.
func Luminance(hex string) (float64, bool) {
	hex = strings.Replace(hex, "#", "", 1)
	r, okR := hexComponent(hex, 0)
	g, okG := hexComponent(hex, 2)
	b, okB := hexComponent(hex, 4)
	if !okR || !okG || !okB {
		return 0, false
	}
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255, true
}

func hexComponent(hex string, offset int) (uint64, bool) {
	if offset >= len(hex) {
		return 0, false
	}
	end := min(offset+2, len(hex))
	v, err := strconv.ParseUint(hex[offset:end], 16, 8)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ContrastingTextColor picks dark text for light backgrounds (luminance above
// 0.5) and white text otherwise, including unparseable colors.
func ContrastingTextColor(hex string) string {
	lum, ok := Luminance(hex)
	if ok && lum > luminanceThreshold {
		return textOnLight
	}
	return textOnDark
}
