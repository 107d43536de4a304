package chunker

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdsalman850/co-teachers-sub003/internal/document"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

// marked builds normalized text with a page marker before each page.
func marked(pages ...string) string {
	var b strings.Builder
	for i, p := range pages {
		b.WriteString("\n\n" + document.PageMarker(i+1) + "\n" + p)
	}
	return document.Normalize(b.String())
}

// longDocument returns a multi-page document with two chapters.
func longDocument(pages int) string {
	sentences := []string{
		"The cell membrane controls what enters and leaves the cell.",
		"Energy stored in glucose is released by respiration in every living cell.",
		"A value of 3.14 appears often when measuring circles in the laboratory.",
		"Plants use sunlight, water and carbon dioxide to make their own food.",
		"Scientists record observations carefully before drawing any conclusion.",
	}
	texts := make([]string, pages)
	for i := range texts {
		var b strings.Builder
		if i == 0 {
			b.WriteString("Chapter 1: Living Things. ")
		}
		if i == pages/2 {
			b.WriteString("Chapter 2: Forces and Motion. ")
		}
		for j := 0; j < 6; j++ {
			b.WriteString(sentences[(i+j)%len(sentences)])
			b.WriteString(" ")
		}
		b.WriteString(fmt.Sprintf("Page %d ends here.", i+1))
		texts[i] = b.String()
	}
	return marked(texts...)
}

func TestNew_ClampsOverlap(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(150))
	assert.Equal(t, 100, c.Size())
	assert.Equal(t, 25, c.Overlap())

	d := New(WithChunkSize(0), WithOverlap(-1))
	assert.Equal(t, DefaultChunkSize, d.Size())
	assert.Equal(t, DefaultOverlap, d.Overlap())
}

func TestChunk_EmptyInput(t *testing.T) {
	assert.Empty(t, ChunkText("", 1000, 200))
	assert.Empty(t, ChunkText(" \n\n ", 1000, 200))
}

func TestChunk_ShortSection(t *testing.T) {
	assert.Empty(t, ChunkText("Too short to keep.", 1000, 200))

	text := "Photosynthesis turns light energy into chemical energy stored in glucose."
	chunks := ChunkText(text, 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
	assert.Equal(t, vocab.Biology, chunks[0].Topic)
}

func TestChunk_IngestionScenario(t *testing.T) {
	text := marked(
		"Chapter 1: Cells. The cell is the basic unit of life.",
		"Mitochondria produce ATP.",
		"Chapter 2: Motion. Velocity is the rate of change of position.",
	)

	chunks := New().Chunk(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	first := chunks[0]
	assert.Equal(t, 1, first.PageStart)
	assert.Equal(t, 2, first.PageEnd)
	assert.Contains(t, first.Section, "Cells")
	assert.Equal(t, vocab.Biology, first.Topic)
	assert.Contains(t, first.Text, "Mitochondria produce ATP.")
	assert.NotContains(t, first.Text, "[[page")

	last := chunks[len(chunks)-1]
	assert.Equal(t, 3, last.PageStart)
	assert.Equal(t, 3, last.PageEnd)
	assert.Equal(t, "Chapter 2: Motion", last.Section)
	assert.Equal(t, vocab.Physics, last.Topic)
	assert.NotContains(t, last.Text, "Mitochondria")
}

func TestChunk_Properties(t *testing.T) {
	const (
		size    = 300
		overlap = 60
	)
	text := longDocument(12)
	runes := []rune(text)
	chunks := New(WithChunkSize(size), WithOverlap(overlap)).Chunk(text)
	require.Greater(t, len(chunks), 12)

	isWord := func(p int) bool { return p >= 0 && p < len(runes) && vocab.IsWordRune(runes[p]) }

	covered := make(map[int]bool)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ID)
		assert.GreaterOrEqual(t, len([]rune(ch.Text)), DefaultMinLength, "chunk %d too short", i)
		assert.LessOrEqual(t, ch.PageStart, ch.PageEnd)
		assert.NotContains(t, ch.Text, "[[page")

		assert.False(t, isWord(ch.Position-1) && isWord(ch.Position), "chunk %d starts mid-word", i)
		assert.False(t, isWord(ch.End-1) && isWord(ch.End), "chunk %d ends mid-word", i)

		for p := ch.PageStart; p <= ch.PageEnd; p++ {
			covered[p] = true
		}

		if i == 0 {
			continue
		}
		prev := chunks[i-1]
		assert.Greater(t, ch.Position, prev.Position, "chunk %d does not advance", i)
		if prev.Section == ch.Section {
			assert.LessOrEqual(t, prev.End-ch.Position, overlap, "chunk %d overlaps too much", i)
		}
	}

	for p := 1; p <= 12; p++ {
		assert.True(t, covered[p], "page %d not covered", p)
	}
}

func TestChunkText_RandomDocuments(t *testing.T) {
	words := []string{
		"cell", "energy", "photosynthesis", "velocity", "3.14", "e.g.", "Dr.", "molécule",
		"naïve", "acceleration", "chlorophyll", "x = 5", "atoms", "größe", "reaction", "force",
	}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		pageCount := 1 + rng.Intn(6)
		pages := make([]string, pageCount)
		for i := range pages {
			var b strings.Builder
			if rng.Intn(3) == 0 {
				fmt.Fprintf(&b, "Chapter %d: Topic %d\n", i+1, run)
			}
			for s := 0; s < 4+rng.Intn(6); s++ {
				for w := 0; w < 6+rng.Intn(8); w++ {
					b.WriteString(words[rng.Intn(len(words))])
					b.WriteString(" ")
				}
				b.WriteString("ends here. ")
			}
			pages[i] = b.String()
		}
		text := marked(pages...)
		runes := []rune(text)
		size := 80 + rng.Intn(400)
		overlap := rng.Intn(size / 2)

		chunks := ChunkText(text, size, overlap)
		require.NotEmpty(t, chunks, "run %d", run)

		isWord := func(p int) bool { return p >= 0 && p < len(runes) && vocab.IsWordRune(runes[p]) }
		covered := make(map[int]bool)
		for i, ch := range chunks {
			assert.False(t, isWord(ch.End-1) && isWord(ch.End), "run %d: chunk %d ends mid-word", run, i)
			assert.False(t, isWord(ch.Position-1) && isWord(ch.Position), "run %d: chunk %d starts mid-word", run, i)
			for p := ch.PageStart; p <= ch.PageEnd; p++ {
				covered[p] = true
			}
			if i > 0 && chunks[i-1].Section == ch.Section {
				assert.LessOrEqual(t, chunks[i-1].End-ch.Position, overlap, "run %d: chunk %d overlaps too much", run, i)
			}
		}
		for p := 1; p <= pageCount; p++ {
			assert.True(t, covered[p], "run %d: page %d not covered", run, p)
		}
	}
}

func TestChunk_SectionsDoNotMix(t *testing.T) {
	text := longDocument(6)
	chunks := New(WithChunkSize(300), WithOverlap(60)).Chunk(text)

	sections := make(map[string]bool)
	for _, ch := range chunks {
		sections[ch.Section] = true
		if ch.Section == "Chapter 1: Living Things" {
			assert.NotContains(t, ch.Text, "Chapter 2")
		}
	}
	assert.True(t, sections["Chapter 1: Living Things"])
	assert.True(t, sections["Chapter 2: Forces and Motion"])
}

func TestChunk_PrefersSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("Water boils at 100 degrees at sea level. ", 20)
	chunks := New(WithChunkSize(200), WithOverlap(40)).Chunk(text)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(ch.Text, "."), "chunk %q", ch.Text)
	}
}

func TestChunk_DecimalIsNotSentenceEnd(t *testing.T) {
	src := newSource("The value of pi is roughly 3.14159 and more digits follow here")
	assert.True(t, src.joins(strings.Index(src.text, ".")))
}

func TestChunk_TerminatesOnPathologicalInput(t *testing.T) {
	chunks := New(WithChunkSize(20), WithOverlap(19), WithMinLength(5)).Chunk(strings.Repeat("ab. ", 500))
	require.NotEmpty(t, chunks)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Position, chunks[i-1].Position)
	}

	long := strings.Repeat("x", 5000)
	one := New(WithChunkSize(100), WithOverlap(20)).Chunk(long)
	require.Len(t, one, 1)
	assert.Equal(t, long, one[0].Text)
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("Mitochondria mitochondria produce energy energy energy for the cell 2024", 3)
	assert.Equal(t, []string{
		"energy", "mitochondria", "produce",
		"nucleus", "membrane", "cytoplasm", "organelle",
	}, got)

	assert.Empty(t, extractKeywords("a an the of 1234", 10))
}
