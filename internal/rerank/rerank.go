// Package rerank re-orders an already selected chunk list by signals the
// search strategies do not weigh: the chapter the student is reading and a
// verbatim hit of the question.
package rerank

import (
	"sort"
	"strings"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/search"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

// Weights are the bonuses added per chunk.
type Weights struct {
	ChapterHint float64 `yaml:"chapter_hint"`
	Query       float64 `yaml:"query"`
	Keyword     float64 `yaml:"keyword"`
	Topic       float64 `yaml:"topic"`
}

// DefaultWeights returns the stock bonuses.
func DefaultWeights() Weights {
	return Weights{ChapterHint: 20, Query: 15, Keyword: 5, Topic: 10}
}

// Reranker applies the bonuses and sorts stably.
type Reranker struct {
	weights Weights
}

// New creates a Reranker. Zero weights use DefaultWeights.
func New(w Weights) *Reranker {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Reranker{weights: w}
}

// Rerank returns a new slice holding chunks ordered by bonus, highest first.
// Chunks with equal bonuses keep their incoming order.
func (r *Reranker) Rerank(chunks []chunker.Chunk, query, chapterHint string) []chunker.Chunk {
	q := search.ParseQuery(query)
	hint := strings.ToLower(strings.TrimSpace(chapterHint))
	raw := strings.ToLower(strings.TrimSpace(query))

	scores := make([]float64, len(chunks))
	order := make([]int, len(chunks))
	for i, ch := range chunks {
		order[i] = i
		scores[i] = r.score(ch, q, raw, hint)
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	out := make([]chunker.Chunk, len(chunks))
	for i, o := range order {
		out[i] = chunks[o]
	}
	return out
}

// Score returns the bonus of a single chunk.
func (r *Reranker) Score(ch chunker.Chunk, query, chapterHint string) float64 {
	return r.score(ch, search.ParseQuery(query),
		strings.ToLower(strings.TrimSpace(query)),
		strings.ToLower(strings.TrimSpace(chapterHint)))
}

func (r *Reranker) score(ch chunker.Chunk, q search.Query, raw, hint string) float64 {
	text := strings.ToLower(ch.Text)

	var score float64
	if hint != "" && strings.Contains(text, hint) {
		score += r.weights.ChapterHint
	}
	if raw != "" && strings.Contains(text, raw) {
		score += r.weights.Query
	}
	for _, w := range q.Words {
		for _, kw := range ch.Keywords {
			if strings.EqualFold(kw, w) {
				score += r.weights.Keyword
				break
			}
		}
	}
	if q.Topic != vocab.General && ch.Topic == q.Topic {
		score += r.weights.Topic
	}
	return score
}
