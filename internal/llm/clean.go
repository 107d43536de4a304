package llm

import (
	"strings"

	"github.com/mdsalman850/co-teachers-sub003/internal/markdown"
)

var stripper = markdown.NewStripper()

// Clean reduces a model reply to plain text: markdown syntax is removed,
// runs of blank lines collapse and surrounding whitespace is trimmed.
func Clean(reply string) string {
	reply = strings.ReplaceAll(reply, "\r\n", "\n")
	return stripper.PlainText([]byte(reply))
}
