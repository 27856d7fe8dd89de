package render

import "testing"

func TestNormalizeSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ligature folded", in: "eﬃcient", want: "efficient"},
		{name: "fullwidth narrowed", in: "ｆｉｇｕｒｅ　１", want: "figure 1"},
		{name: "surrounding space trimmed", in: "  text  ", want: "text"},
		{name: "plain text unchanged", in: "plain text", want: "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSource(tt.in); got != tt.want {
				t.Errorf("NormalizeSource(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCollapseSoftWraps(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single breaks become spaces",
			in:   "a line that was\nwrapped by the\ncolumn width",
			want: "a line that was wrapped by the column width",
		},
		{
			name: "double break kept as paragraph",
			in:   "first paragraph\nstill first\n\nsecond paragraph",
			want: "first paragraph still first\n\nsecond paragraph",
		},
		{
			name: "many breaks collapse to one paragraph boundary",
			in:   "a\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "trailing breaks trimmed",
			in:   "text\n",
			want: "text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseSoftWraps(tt.in); got != tt.want {
				t.Errorf("CollapseSoftWraps(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
