package chunker

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

// extractKeywords returns up to limit distinct tokens longer than three
// characters ranked by frequency (ties by first occurrence), followed by the
// domain terms related to concepts named in text.
func extractKeywords(text string, limit int) []string {
	type count struct {
		word string
		n    int
	}

	counts := make(map[string]*count)
	var order []*count
	for _, tok := range vocab.Tokens(text) {
		if utf8.RuneCountInString(tok) <= 3 || vocab.IsStopword(tok) || !hasLetter(tok) {
			continue
		}
		if c, ok := counts[tok]; ok {
			c.n++
			continue
		}
		c := &count{word: tok, n: 1}
		counts[tok] = c
		order = append(order, c)
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].n > order[j].n })

	keywords := make([]string, 0, min(limit, len(order))+vocabKeywords)
	seen := make(map[string]struct{})
	for _, c := range order {
		if len(keywords) == limit {
			break
		}
		keywords = append(keywords, c.word)
		seen[c.word] = struct{}{}
	}

	for _, term := range vocab.ExpandKeywords(text, vocabKeywords) {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		keywords = append(keywords, term)
	}
	return keywords
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
