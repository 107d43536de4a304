package search

import (
	"strings"
	"unicode/utf8"

	"github.com/mdsalman850/co-teachers-sub003/internal/document"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

const trimChars = " \t\n\"'`?!.,;:()[]{}"

// Query is a search query normalized once per call.
type Query struct {
	Raw        string
	Normalized string      // Lowercase, whitespace collapsed, outer punctuation trimmed
	Words      []string    // Distinct tokens longer than two characters, stopwords removed
	Topic      vocab.Topic // Topic detected from the raw query
}

// ParseQuery normalizes raw into a Query.
func ParseQuery(raw string) Query {
	normalized := strings.ToLower(document.Normalize(raw))
	normalized = strings.Join(strings.Fields(normalized), " ")
	normalized = strings.Trim(normalized, trimChars)

	return Query{
		Raw:        raw,
		Normalized: normalized,
		Words:      queryWords(normalized),
		Topic:      vocab.DetectTopic(raw),
	}
}

func queryWords(normalized string) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, tok := range vocab.Tokens(normalized) {
		if utf8.RuneCountInString(tok) <= 2 || vocab.IsStopword(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		words = append(words, tok)
	}
	return words
}
