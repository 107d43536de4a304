package search

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

// Weights are the per-strategy scores. Only their ordering is load-bearing:
// Phrase > And > Or > the fuzzy, semantic, topic and keyword signals.
type Weights struct {
	Phrase   float64 `yaml:"phrase"`
	And      float64 `yaml:"and"`
	Or       float64 `yaml:"or"`
	Fuzzy    float64 `yaml:"fuzzy"`
	Semantic float64 `yaml:"semantic"`
	Topic    float64 `yaml:"topic"`
	Keyword  float64 `yaml:"keyword"`
}

// DefaultWeights returns the stock strategy weights.
func DefaultWeights() Weights {
	return Weights{
		Phrase:   100,
		And:      50,
		Or:       20,
		Fuzzy:    10,
		Semantic: 15,
		Topic:    5,
		Keyword:  8,
	}
}

// ScoreFunc scores chunks for a query. Keys are chunk ordinals in the
// indexed set; chunks without a score are absent.
type ScoreFunc func(idx *Index, q Query) map[int]float64

// Strategy is one named scoring pass. Strategy scores are summed.
type Strategy struct {
	Name  string
	Score ScoreFunc
}

// DefaultStrategies returns the scoring passes in evaluation order.
func DefaultStrategies(w Weights) []Strategy {
	return []Strategy{
		{Name: "phrase", Score: phraseMatch(w.Phrase)},
		{Name: "and", Score: allWordsMatch(w.And)},
		{Name: "or", Score: anyWordMatch(w.Or)},
		{Name: "fuzzy", Score: fuzzyMatch(w.Fuzzy)},
		{Name: "semantic", Score: conceptMatch(w.Semantic)},
		{Name: "topic", Score: topicMatch(w.Topic)},
		{Name: "keyword", Score: keywordMatch(w.Keyword)},
	}
}

// phraseMatch awards weight to every chunk whose text holds the whole
// normalized query.
func phraseMatch(weight float64) ScoreFunc {
	return func(idx *Index, q Query) map[int]float64 {
		scores := make(map[int]float64)
		if q.Normalized == "" {
			return scores
		}
		for i, text := range idx.texts {
			if strings.Contains(text, q.Normalized) {
				scores[i] = weight
			}
		}
		return scores
	}
}

// allWordsMatch awards weight to chunks holding every query word in any
// field.
func allWordsMatch(weight float64) ScoreFunc {
	return func(idx *Index, q Query) map[int]float64 {
		scores := make(map[int]float64)
		if len(q.Words) == 0 {
			return scores
		}
		for i := range idx.texts {
			all := true
			for _, w := range q.Words {
				if _, ok := idx.hits(w)[i]; !ok {
					all = false
					break
				}
			}
			if all {
				scores[i] = weight
			}
		}
		return scores
	}
}

// anyWordMatch awards weight per matching query word, scaled by the field
// the word was found in.
func anyWordMatch(weight float64) ScoreFunc {
	return func(idx *Index, q Query) map[int]float64 {
		scores := make(map[int]float64)
		for _, w := range q.Words {
			for i, field := range idx.hits(w) {
				scores[i] += weight * field
			}
		}
		return scores
	}
}

// fuzzyMatch awards weight once per query word longer than four characters
// to chunks holding a term within edit distance one of it.
func fuzzyMatch(weight float64) ScoreFunc {
	return func(idx *Index, q Query) map[int]float64 {
		scores := make(map[int]float64)
		for _, w := range q.Words {
			n := utf8.RuneCountInString(w)
			if n <= 4 {
				continue
			}
			matched := make(map[int]struct{})
			for _, term := range idx.terms {
				m := utf8.RuneCountInString(term)
				if m < n-1 || m > n+1 {
					continue
				}
				if levenshtein.ComputeDistance(w, term) > 1 {
					continue
				}
				for i := range idx.hits(term) {
					matched[i] = struct{}{}
				}
			}
			for i := range matched {
				scores[i] += weight
			}
		}
		return scores
	}
}

// conceptMatch awards weight per referenced concept to chunks whose text or
// keywords mention the concept or one of its related terms.
func conceptMatch(weight float64) ScoreFunc {
	return func(idx *Index, q Query) map[int]float64 {
		scores := make(map[int]float64)
		for _, c := range vocab.ConceptsFor(q.Normalized, q.Words) {
			cluster := append([]string{c.Key}, c.Terms...)
			for i := range idx.texts {
				if mentionsAny(idx.texts[i], idx.keywords[i], cluster) {
					scores[i] += weight
				}
			}
		}
		return scores
	}
}

func mentionsAny(text string, keywords, terms []string) bool {
	for _, term := range terms {
		if vocab.ContainsTerm(text, term) {
			return true
		}
		for _, kw := range keywords {
			if kw == term {
				return true
			}
		}
	}
	return false
}

// topicMatch awards weight to chunks sharing the query's non-general topic.
func topicMatch(weight float64) ScoreFunc {
	return func(idx *Index, q Query) map[int]float64 {
		scores := make(map[int]float64)
		if q.Topic == vocab.General || q.Topic == "" {
			return scores
		}
		for i, topic := range idx.topics {
			if topic == q.Topic {
				scores[i] = weight
			}
		}
		return scores
	}
}

// keywordMatch awards weight per query word that is a substring of, or
// contains, any chunk keyword.
func keywordMatch(weight float64) ScoreFunc {
	return func(idx *Index, q Query) map[int]float64 {
		scores := make(map[int]float64)
		for i, kws := range idx.keywords {
			for _, w := range q.Words {
				for _, kw := range kws {
					if kw == "" {
						continue
					}
					if strings.Contains(kw, w) || strings.Contains(w, kw) {
						scores[i] += weight
						break
					}
				}
			}
		}
		return scores
	}
}
