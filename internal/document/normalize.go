// Package document turns textbook PDFs into a single normalized text stream
// annotated with page markers.
package document

import (
	"regexp"
	"strings"
)

var (
	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "«", `"`, "»", `"`,
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
	)
	operatorPattern    = regexp.MustCompile(`(<=|>=|!=|==|[=+<>×÷≤≥≠])`)
	inlineSpace        = regexp.MustCompile(`[^\S\n]+`)
	spaceAroundNewline = regexp.MustCompile(` ?\n ?`)
	paragraphRun       = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes extracted PDF text: line endings become LF, curly
// quotes become straight, operators get a space on each side, runs of
// inline whitespace collapse to one space and three or more newlines
// collapse to a paragraph break. It never fails and is idempotent.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = quoteReplacer.Replace(s)
	s = operatorPattern.ReplaceAllString(s, " $1 ")
	s = inlineSpace.ReplaceAllString(s, " ")
	s = spaceAroundNewline.ReplaceAllString(s, "\n")
	s = paragraphRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
