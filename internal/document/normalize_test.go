package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "line endings", in: "one\r\ntwo\rthree", want: "one\ntwo\nthree"},
		{name: "curly quotes", in: "“Cells” aren’t ‘simple’", want: `"Cells" aren't 'simple'`},
		{name: "operators", in: "F=ma and a<=b", want: "F = ma and a <= b"},
		{name: "unicode operators", in: "6÷2≠4", want: "6 ÷ 2 ≠ 4"},
		{name: "inline whitespace", in: "a \t  b", want: "a b"},
		{name: "space around newline", in: "end. \n  Start", want: "end.\nStart"},
		{name: "paragraph runs", in: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "spaced blank lines", in: "a\n \n \n b", want: "a\n\nb"},
		{name: "trim", in: "  \n text \n ", want: "text"},
		{name: "hyphen untouched", in: "well-known x-ray", want: "well-known x-ray"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"F=ma\r\n\r\n\r\nv = d / t",
		"“Energy”  is\tconserved.\n\n\n\n  E=mc²",
		"a<=b>=c!=d==e",
		"[[page 1]]\nChapter 1: Cells\n\n\n[[page 2]]\nMore text",
		"   ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
