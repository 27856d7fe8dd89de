package doc

import "testing"

func TestEscapeStringLiteral(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "plain text", "plain text"},
		{"balanced parens", "(see Fig. 2)", `\(see Fig. 2\)`},
		{"unbalanced close", "a) b", `a\) b`},
		{"unbalanced open", "f(x", `f\(x`},
		{"backslash", `C:\path`, `C:\\path`},
		{"backslash before paren", `\)`, `\\\)`},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := escapeStringLiteral(tc.in); got != tc.want {
				t.Errorf("escapeStringLiteral(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFontResourceNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 1; i <= 50; i++ {
		name := fontResourceName(i)
		if name == "" {
			t.Fatalf("empty resource name for seq %d", i)
		}
		if seen[name] {
			t.Fatalf("resource name %q repeats at seq %d", name, i)
		}
		seen[name] = true
	}
}
