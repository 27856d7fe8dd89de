package render

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// NormalizeSource canonicalizes extracted text before translation:
// compatibility normalization folds ligatures and presentation forms, and
// fullwidth ASCII is narrowed so the model sees plain punctuation.
func NormalizeSource(s string) string {
	s = norm.NFKC.String(s)
	s = width.Narrow.String(s)
	return strings.TrimSpace(s)
}

// CollapseSoftWraps treats single line breaks as soft wraps from the
// original column width and replaces them with spaces, so the translation
// reflows to the target box. Runs of two or more breaks are real paragraph
// boundaries and survive as exactly one blank line.
func CollapseSoftWraps(s string) string {
	paragraphs := paragraphBreak.Split(s, -1)
	for i, p := range paragraphs {
		lines := strings.Split(p, "\n")
		for j, l := range lines {
			lines[j] = strings.TrimSpace(l)
		}
		paragraphs[i] = strings.Join(lines, " ")
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
