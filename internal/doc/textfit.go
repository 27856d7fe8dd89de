package doc

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"pdf-layout-translator/internal/geom"
)

// LineSpacing is the line height multiplier used when laying out inserted
// text.
const LineSpacing = 1.2

// RuneAdvance estimates the horizontal advance of a single rune at the
// given font size. East Asian wide and fullwidth runes advance a full em;
// everything else is approximated at half an em, which matches the average
// advance of proportional Latin fonts closely enough for fit decisions.
func RuneAdvance(r rune, size float64) float64 {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return size
	default:
		return 0.5 * size
	}
}

// StringAdvance estimates the rendered width of s at the given font size.
func StringAdvance(s string, size float64) float64 {
	total := 0.0
	for _, r := range s {
		total += RuneAdvance(r, size)
	}
	return total
}

// LayoutText wraps text into lines no wider than boxWidth at the given
// font size. Wrapping prefers whitespace boundaries; CJK runs may break at
// any rune, as is conventional for those scripts. Explicit newlines are
// honored as hard breaks.
func LayoutText(text string, boxWidth, size float64) []string {
	var lines []string
	for _, hard := range strings.Split(text, "\n") {
		lines = append(lines, wrapLine(hard, boxWidth, size)...)
	}
	return lines
}

func wrapLine(line string, boxWidth, size float64) []string {
	if line == "" {
		return []string{""}
	}

	var out []string
	var cur strings.Builder
	curWidth := 0.0
	lastSpace := -1 // byte offset in cur after which a break is allowed
	lastSpaceWidth := 0.0

	flush := func() {
		out = append(out, strings.TrimRight(cur.String(), " "))
		cur.Reset()
		curWidth = 0
		lastSpace = -1
	}

	for _, r := range line {
		adv := RuneAdvance(r, size)
		if curWidth+adv > boxWidth && cur.Len() > 0 {
			if isWide(r) || unicode.IsSpace(r) || lastSpace < 0 {
				// Break right here: CJK wraps anywhere, and without a
				// recent space there is no better breakpoint.
				flush()
				if unicode.IsSpace(r) {
					continue
				}
			} else {
				// Break at the last whitespace, carrying the partial
				// word onto the next line.
				s := cur.String()
				out = append(out, strings.TrimRight(s[:lastSpace], " "))
				rest := strings.TrimLeft(s[lastSpace:], " ")
				cur.Reset()
				cur.WriteString(rest)
				curWidth -= lastSpaceWidth
				lastSpace = -1
			}
		}
		cur.WriteRune(r)
		curWidth += adv
		if unicode.IsSpace(r) {
			lastSpace = cur.Len()
			lastSpaceWidth = curWidth
		}
	}
	if cur.Len() > 0 {
		flush()
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func isWide(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}

// TextFits reports whether text, wrapped to r's width, fits within r's
// height at the given font size.
func TextFits(r geom.Rect, text string, size float64) bool {
	if size <= 0 || r.IsEmpty() {
		return false
	}
	lines := LayoutText(text, r.Width(), size)
	return float64(len(lines))*size*LineSpacing <= r.Height()
}
