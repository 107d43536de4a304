package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

// FieldWeights scales a term hit by the chunk field it was found in.
type FieldWeights struct {
	Text     float64 `yaml:"text"`
	Keywords float64 `yaml:"keywords"`
	Topic    float64 `yaml:"topic"`
}

// DefaultFieldWeights favours keyword hits over body text and treats the
// topic label as a weak signal.
func DefaultFieldWeights() FieldWeights {
	return FieldWeights{Text: 1.0, Keywords: 1.5, Topic: 0.5}
}

// Index is an inverted index over one document's chunks. It is immutable
// once built and is rebuilt whenever the chunks change.
type Index struct {
	// postings maps a term to the chunk ordinals holding it and the best
	// field weight it was seen with.
	postings map[string]map[int]float64
	terms    []string // sorted vocabulary for fuzzy lookups
	texts    []string // lowercase chunk texts
	keywords [][]string
	topics   []vocab.Topic
	ids      []int
}

// BuildIndex indexes chunk text, keywords and topic labels. Chunk ids must be
// unique within the set.
func BuildIndex(chunks []chunker.Chunk, weights FieldWeights) (*Index, error) {
	if weights.Text < 0 || weights.Keywords < 0 || weights.Topic < 0 {
		return nil, fmt.Errorf("%w: negative field weight", ErrIndexBuild)
	}

	idx := &Index{
		postings: make(map[string]map[int]float64),
		texts:    make([]string, len(chunks)),
		keywords: make([][]string, len(chunks)),
		topics:   make([]vocab.Topic, len(chunks)),
		ids:      make([]int, len(chunks)),
	}

	seen := make(map[int]struct{}, len(chunks))
	for i, ch := range chunks {
		if _, dup := seen[ch.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate chunk id %d", ErrIndexBuild, ch.ID)
		}
		seen[ch.ID] = struct{}{}

		idx.ids[i] = ch.ID
		idx.texts[i] = strings.ToLower(ch.Text)
		idx.topics[i] = ch.Topic

		kws := make([]string, len(ch.Keywords))
		for k, kw := range ch.Keywords {
			kws[k] = strings.ToLower(kw)
		}
		idx.keywords[i] = kws

		for _, tok := range vocab.Tokens(ch.Text) {
			idx.add(tok, i, weights.Text)
		}
		for _, kw := range kws {
			for _, tok := range vocab.Tokens(kw) {
				idx.add(tok, i, weights.Keywords)
			}
		}
		if ch.Topic != "" {
			idx.add(string(ch.Topic), i, weights.Topic)
		}
	}

	idx.terms = make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		idx.terms = append(idx.terms, term)
	}
	sort.Strings(idx.terms)

	return idx, nil
}

func (idx *Index) add(term string, ordinal int, weight float64) {
	hits, ok := idx.postings[term]
	if !ok {
		hits = make(map[int]float64)
		idx.postings[term] = hits
	}
	if cur, seen := hits[ordinal]; !seen || weight > cur {
		hits[ordinal] = weight
	}
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.texts)
}

// Terms returns the number of distinct indexed terms.
func (idx *Index) Terms() int {
	if idx == nil {
		return 0
	}
	return len(idx.terms)
}

// hits returns the chunk ordinals holding term with their field weights.
func (idx *Index) hits(term string) map[int]float64 {
	return idx.postings[term]
}

// consistent reports whether idx was built from chunks.
func (idx *Index) consistent(chunks []chunker.Chunk) bool {
	if idx == nil || len(idx.ids) != len(chunks) {
		return false
	}
	for i, ch := range chunks {
		if idx.ids[i] != ch.ID {
			return false
		}
	}
	return true
}
