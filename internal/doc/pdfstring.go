package doc

import (
	"fmt"
	"strings"
)

// escapeStringLiteral escapes the delimiters of a PDF string literal so
// inserted text can never terminate the literal early or leave it
// unbalanced in the content stream.
func escapeStringLiteral(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '(', ')':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// fontResourceName returns the Font dictionary key for the nth font added
// to a document. Every text draw gets its own entry so a later simple font
// never shadows a CID font an earlier content stream still references.
func fontResourceName(seq int) string {
	return fmt.Sprintf("FT%d", seq)
}
