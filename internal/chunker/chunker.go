// Package chunker splits normalized textbook text into overlapping passages
// aligned to section, sentence and paragraph boundaries. Each passage carries
// the page range it was cut from, its keywords and a detected topic.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/mdsalman850/co-teachers-sub003/internal/document"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

const (
	// DefaultChunkSize is the default window size in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is the default number of characters shared by
	// consecutive chunks of the same section.
	DefaultOverlap = 200

	// DefaultMinLength is the shortest chunk text that is kept.
	DefaultMinLength = 50

	// DefaultMaxKeywords caps the frequency-ranked keywords per chunk.
	DefaultMaxKeywords = 10

	// vocabKeywords caps the domain terms added on top of the ranked keywords.
	vocabKeywords = 5
)

// Chunk is an immutable passage of one document.
type Chunk struct {
	ID        int         // Ordinal by position (0, 1, 2...)
	Text      string      // Passage text with page markers stripped
	PageStart int         // First page with content in the window
	PageEnd   int         // Last page with content in the window
	Position  int         // Rune offset of the window start in the source text
	End       int         // Exclusive rune offset of the window end
	Section   string      // Title of the enclosing section, "" before the first heading
	Keywords  []string    // Ranked tokens plus related domain terms
	Topic     vocab.Topic // Detected subject
}

// Chunker holds the chunking parameters.
type Chunker struct {
	size        int
	overlap     int
	minLength   int
	maxKeywords int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the window size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinLength sets the minimum chunk text length in characters.
func WithMinLength(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.minLength = n
		}
	}
}

// WithMaxKeywords caps the frequency-ranked keywords per chunk.
func WithMaxKeywords(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.maxKeywords = n
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:        DefaultChunkSize,
		overlap:     DefaultOverlap,
		minLength:   DefaultMinLength,
		maxKeywords: DefaultMaxKeywords,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}

	return c
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the effective overlap after clamping.
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkText splits text with the given window size and overlap and default
// minimum length and keyword cap.
func ChunkText(text string, chunkSize, overlap int) []Chunk {
	return New(WithChunkSize(chunkSize), WithOverlap(overlap)).Chunk(text)
}

// Chunk splits normalized text into chunks. Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	src := newSource(text)
	var chunks []Chunk
	for _, sec := range src.sections() {
		chunks = c.chunkSection(src, sec, chunks)
	}
	return chunks
}

// chunkSection slides the window across one section and appends the chunks
// that clear the minimum length.
func (c *Chunker) chunkSection(src *source, sec section, chunks []Chunk) []Chunk {
	start := sec.start
	for start < sec.end {
		start = src.skipSpace(start, sec.end)
		if start >= sec.end {
			break
		}

		end := min(start+c.size, sec.end)
		if end < sec.end {
			end = src.boundary(start, end, sec.end)
		}

		if ch, ok := c.build(src, sec, start, end); ok {
			ch.ID = len(chunks)
			chunks = append(chunks, ch)
		}

		if end >= sec.end {
			break
		}

		next := src.nextStart(end-c.overlap, end)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func (c *Chunker) build(src *source, sec section, start, end int) (Chunk, bool) {
	raw := string(src.runes[start:end])
	text := strings.TrimSpace(document.MarkerPattern.ReplaceAllString(raw, ""))
	if text == "" || utf8.RuneCountInString(text) < c.minLength {
		return Chunk{}, false
	}

	first, last, ok := src.contentSpan(start, end)
	if !ok {
		return Chunk{}, false
	}

	return Chunk{
		Text:      text,
		PageStart: src.pageAt(first),
		PageEnd:   src.pageAt(last),
		Position:  start,
		End:       end,
		Section:   sec.title,
		Keywords:  extractKeywords(text, c.maxKeywords),
		Topic:     vocab.DetectTopic(text),
	}, true
}
