// Package search ranks a document's chunks against a question using an
// inverted index and an ordered list of lexical scoring strategies.
package search

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
)

const (
	// DefaultTopK is the number of chunks returned when the caller passes 0.
	DefaultTopK = 5

	// DefaultMaxResults is the hard cap on returned chunks.
	DefaultMaxResults = 8

	// DefaultMaxContextChars bounds the combined text of returned chunks.
	DefaultMaxContextChars = 6000
)

// Config tunes an Engine. Zero fields take the defaults.
type Config struct {
	Weights         Weights
	TopK            int
	MaxResults      int
	MaxContextChars int
	// Strategies overrides the scoring passes built from Weights.
	Strategies []Strategy
}

// Result is a ranked chunk and its accumulated score.
type Result struct {
	Chunk chunker.Chunk
	Score float64
}

// Engine runs the scoring strategies and caps the ranked result set.
type Engine struct {
	strategies      []Strategy
	topK            int
	maxResults      int
	maxContextChars int
	logger          *slog.Logger
}

// NewEngine creates an Engine. A nil logger uses slog.Default().
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	strategies := cfg.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies(cfg.Weights)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	return &Engine{
		strategies:      strategies,
		topK:            cfg.TopK,
		maxResults:      cfg.MaxResults,
		maxContextChars: cfg.MaxContextChars,
		logger:          logger,
	}
}

// Search returns up to topK chunks, most relevant first, without duplicates.
// A topK of 0 or less uses the configured default. It never panics: an index
// that does not match chunks degrades to a substring filter.
func (e *Engine) Search(idx *Index, chunks []chunker.Chunk, query string, topK int) []chunker.Chunk {
	results := e.SearchScored(idx, chunks, query, topK)
	out := make([]chunker.Chunk, len(results))
	for i, r := range results {
		out[i] = r.Chunk
	}
	return out
}

// SearchScored is Search with the accumulated score of every result.
func (e *Engine) SearchScored(idx *Index, chunks []chunker.Chunk, query string, topK int) []Result {
	if len(chunks) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = e.topK
	}
	limit := min(topK, e.maxResults)
	q := ParseQuery(query)

	ranked, err := e.rank(idx, chunks, q, limit)
	if err != nil {
		e.logger.Warn("Search degraded, using substring filter", "query", query, "error", err)
		ranked = substringFilter(chunks, q, limit)
	}
	return e.budget(ranked)
}

// Explain returns the per-strategy scores of every chunk that scored.
func (e *Engine) Explain(idx *Index, query string) map[string]map[int]float64 {
	if idx == nil {
		return nil
	}
	q := ParseQuery(query)
	out := make(map[string]map[int]float64, len(e.strategies))
	for _, s := range e.strategies {
		out[s.Name] = s.Score(idx, q)
	}
	return out
}

// rank merges strategy scores and backfills by literal word counts. A panic
// inside a strategy is reported as an error.
func (e *Engine) rank(idx *Index, chunks []chunker.Chunk, q Query, limit int) (results []Result, err error) {
	if !idx.consistent(chunks) {
		return nil, fmt.Errorf("%w: index holds %d chunks, %d given", errDegraded, idx.Len(), len(chunks))
	}
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("%w: %v", errDegraded, r)
		}
	}()

	total := make(map[int]float64)
	for _, s := range e.strategies {
		for i, score := range s.Score(idx, q) {
			if i < 0 || i >= len(chunks) {
				return nil, fmt.Errorf("%w: strategy %s scored unknown chunk %d", errDegraded, s.Name, i)
			}
			total[i] += score
		}
	}

	ordinals := make([]int, 0, len(total))
	for i, score := range total {
		if score > 0 {
			ordinals = append(ordinals, i)
		}
	}
	sort.Ints(ordinals)
	sort.SliceStable(ordinals, func(a, b int) bool { return total[ordinals[a]] > total[ordinals[b]] })

	if len(ordinals) > limit {
		ordinals = ordinals[:limit]
	}
	results = make([]Result, 0, limit)
	picked := make(map[int]struct{}, len(ordinals))
	for _, i := range ordinals {
		results = append(results, Result{Chunk: chunks[i], Score: total[i]})
		picked[i] = struct{}{}
	}

	if len(results) < limit {
		results = append(results, backfill(idx, chunks, q, picked, limit-len(results))...)
	}
	return results, nil
}

// backfill ranks the chunks not yet picked by literal query-word counts.
func backfill(idx *Index, chunks []chunker.Chunk, q Query, picked map[int]struct{}, n int) []Result {
	type candidate struct {
		ordinal int
		count   int
	}
	var candidates []candidate
	for i, text := range idx.texts {
		if _, ok := picked[i]; ok {
			continue
		}
		count := 0
		for _, w := range q.Words {
			count += strings.Count(text, w)
		}
		if count > 0 {
			candidates = append(candidates, candidate{ordinal: i, count: count})
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].count > candidates[b].count })

	out := make([]Result, 0, min(n, len(candidates)))
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		out = append(out, Result{Chunk: chunks[c.ordinal], Score: float64(c.count)})
	}
	return out
}

// substringFilter returns chunks whose text holds the normalized query or
// any query word, in document order.
func substringFilter(chunks []chunker.Chunk, q Query, limit int) []Result {
	needles := q.Words
	if q.Normalized != "" {
		needles = append([]string{q.Normalized}, needles...)
	}
	if len(needles) == 0 {
		return nil
	}

	var out []Result
	for _, ch := range chunks {
		if len(out) == limit {
			break
		}
		text := strings.ToLower(ch.Text)
		for _, n := range needles {
			if strings.Contains(text, n) {
				out = append(out, Result{Chunk: ch})
				break
			}
		}
	}
	return out
}

// budget trims results to the context size limit, always keeping the first.
func (e *Engine) budget(results []Result) []Result {
	used := 0
	for i, r := range results {
		used += utf8.RuneCountInString(r.Chunk.Text)
		if used > e.maxContextChars && i > 0 {
			return results[:i]
		}
	}
	return results
}
