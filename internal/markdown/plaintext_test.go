package markdown

import (
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "Mitochondria produce ATP.",
			want:  "Mitochondria produce ATP.",
		},
		{
			name:  "emphasis removed",
			input: "The **mitochondria** is the *powerhouse* of the cell.",
			want:  "The mitochondria is the powerhouse of the cell.",
		},
		{
			name:  "heading and paragraph",
			input: "## Cells\n\nThe cell is the basic unit of life.",
			want:  "Cells\n\nThe cell is the basic unit of life.",
		},
		{
			name:  "bullets normalized",
			input: "* nucleus\n* membrane\n",
			want:  "- nucleus\n- membrane",
		},
		{
			name:  "ordered list keeps numbering",
			input: "3. first\n4. second\n",
			want:  "3. first\n4. second",
		},
		{
			name:  "link keeps label",
			input: "See [chapter 2](https://example.com/ch2) for details.",
			want:  "See chapter 2 for details.",
		},
		{
			name:  "inline code unwrapped",
			input: "Use `F = ma` here.",
			want:  "Use F = ma here.",
		},
		{
			name:  "fenced code kept verbatim",
			input: "```\nv = d / t\n```",
			want:  "v = d / t",
		},
		{
			name:  "soft breaks preserved",
			input: "line one\nline two",
			want:  "line one\nline two",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	stripper := NewStripper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripper.PlainText([]byte(tt.input))
			if got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainText_CollapsesBlankLines(t *testing.T) {
	got := NewStripper().PlainText([]byte("# A\n\n\n\n> quoted\n\nend"))
	want := "A\n\nquoted\n\nend"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
