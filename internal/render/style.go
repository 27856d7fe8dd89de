// Package render draws translated text back into the rectangles the wipe
// stage vacated, reproducing the original style and shrinking the font
// when the translation runs longer than the source.
package render

import (
	"pdf-layout-translator/internal/doc"
)

// Color snap thresholds. Body text is frequently extracted as very dark
// gray or as small blue hyperlink text; both render as plain black.
const (
	nearBlackChannel = 0x40
	smallBlueMaxSize = 9.0
)

// SnapColor maps extraction artifacts to canonical text colors:
// near-black shades become pure black, and small blue text (hyperlinks,
// reference markers) becomes black as well. Genuine accent colors pass
// through unchanged.
func SnapColor(color uint32, size float64) uint32 {
	r := (color >> 16) & 0xFF
	g := (color >> 8) & 0xFF
	b := color & 0xFF

	if r < nearBlackChannel && g < nearBlackChannel && b < nearBlackChannel {
		return 0x000000
	}
	if size < smallBlueMaxSize && b > 0x80 && r < 0x60 && g < 0x80 {
		return 0x000000
	}
	return color
}

type styleKey struct {
	font  string
	size  float64
	bold  bool
	color uint32
}

// DeriveStyle picks the dominant style of a block by weighted vote, the
// weight being each span's character count. Ties go to the style carried
// by the single largest span.
func DeriveStyle(spans []doc.TextSpan) doc.TextStyle {
	if len(spans) == 0 {
		return doc.TextStyle{Font: "helv", Size: 11, Color: 0x000000}
	}

	weight := make(map[styleKey]int)
	largest := make(map[styleKey]int)
	for _, s := range spans {
		k := styleKey{font: s.Font, size: s.Size, bold: s.Bold, color: s.Color}
		n := len([]rune(s.Text))
		weight[k] += n
		if n > largest[k] {
			largest[k] = n
		}
	}

	var best styleKey
	bestWeight := -1
	for _, s := range spans {
		k := styleKey{font: s.Font, size: s.Size, bold: s.Bold, color: s.Color}
		w := weight[k]
		if w > bestWeight || (w == bestWeight && largest[k] > largest[best]) {
			best = k
			bestWeight = w
		}
	}

	return doc.TextStyle{
		Font:  best.font,
		Size:  best.size,
		Bold:  best.bold,
		Color: SnapColor(best.color, best.size),
	}
}
