package vocab

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokens splits text into lowercase letter/digit runs.
func Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Concepts returns a copy of the concept table in its fixed order.
func Concepts() []Concept {
	out := make([]Concept, len(concepts))
	for i, c := range concepts {
		out[i] = clone(c)
	}
	return out
}

// Lookup returns the related terms for a canonical concept key.
func Lookup(key string) ([]string, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, c := range concepts {
		if c.Key == key {
			return append([]string(nil), c.Terms...), true
		}
	}
	return nil, false
}

// Topics returns the non-general topics in detection order.
func Topics() []Topic {
	return append([]Topic(nil), topicOrder...)
}

// DetectTopic returns the first topic whose cluster has a term in text,
// or General when none match.
func DetectTopic(text string) Topic {
	lower := strings.ToLower(text)
	for _, topic := range topicOrder {
		for _, term := range topicClusters[topic] {
			if ContainsTerm(lower, term) {
				return topic
			}
		}
	}
	return General
}

// ExpandKeywords returns up to limit related terms of every concept whose
// key appears in text, in table order and without duplicates.
func ExpandKeywords(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var out []string
	for _, c := range concepts {
		if !ContainsTerm(lower, c.Key) {
			continue
		}
		for _, term := range c.Terms {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// ConceptsFor returns the concepts a query refers to. A concept matches when
// a query word of four or more letters is a substring of its key or contains
// it, or when the query mentions the key or one of its terms outright.
func ConceptsFor(query string, words []string) []Concept {
	lower := strings.ToLower(query)
	var out []Concept
	for _, c := range concepts {
		if conceptMatches(c, lower, words) {
			out = append(out, clone(c))
		}
	}
	return out
}

func conceptMatches(c Concept, lowerQuery string, words []string) bool {
	for _, w := range words {
		if utf8.RuneCountInString(w) < 4 {
			continue
		}
		if strings.Contains(c.Key, w) || strings.Contains(w, c.Key) {
			return true
		}
	}
	if ContainsTerm(lowerQuery, c.Key) {
		return true
	}
	for _, term := range c.Terms {
		if ContainsTerm(lowerQuery, term) {
			return true
		}
	}
	return false
}

// ContainsTerm reports whether the lowercase term occurs in the lowercase
// text as a whole word or phrase, allowing a plural "s" or "es" suffix.
func ContainsTerm(text, term string) bool {
	if term == "" || len(term) > len(text) {
		return false
	}
	for from := 0; from <= len(text)-len(term); {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return false
		}
		i += from
		if boundaryBefore(text, i) && boundaryAfter(text, i+len(term)) {
			return true
		}
		from = i + 1
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !IsWordRune(r)
}

func boundaryAfter(text string, j int) bool {
	rest := text[j:]
	for _, suffix := range []string{"", "s", "es"} {
		if !strings.HasPrefix(rest, suffix) {
			continue
		}
		after := rest[len(suffix):]
		if after == "" {
			return true
		}
		r, _ := utf8.DecodeRuneInString(after)
		if !IsWordRune(r) {
			return true
		}
	}
	return false
}

// IsWordRune reports whether r is part of a word (a letter or a digit).
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func clone(c Concept) Concept {
	c.Terms = append([]string(nil), c.Terms...)
	return c
}
