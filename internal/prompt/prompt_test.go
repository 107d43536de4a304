package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/history"
)

func excerpts() []chunker.Chunk {
	return []chunker.Chunk{
		{ID: 0, Text: "Chapter 1: Cells. The cell is the basic unit of life.\n\nMitochondria produce ATP.", PageStart: 1, PageEnd: 2, Section: "Chapter 1: Cells"},
		{ID: 1, Text: "Chapter 2: Motion. Velocity is the rate of change of position.", PageStart: 3, PageEnd: 3},
	}
}

func TestBuild_Layout(t *testing.T) {
	b := NewBuilder(Config{}, nil)
	turns := []history.Message{
		{Role: history.RoleUser, Text: "What is a cell?"},
		{Role: history.RoleAssistant, Text: "The basic unit of life."},
	}

	got := b.Build(excerpts(), "What do mitochondria make?", "Chapter 1", "biology", turns)

	assert.True(t, strings.HasPrefix(got, "You are a friendly biology tutor"))
	assert.Contains(t, got, "[Excerpt 1 | pages 1-2 | Chapter 1: Cells]\nChapter 1: Cells.")
	assert.Contains(t, got, "[Excerpt 2 | page 3]\nChapter 2: Motion.")
	assert.Contains(t, got, "RECENT CONVERSATION:\nStudent: What is a cell?\nTutor: The basic unit of life.\n")
	assert.Contains(t, got, "CURRENT CHAPTER: Chapter 1")
	assert.Contains(t, got, "STUDENT QUESTION:\nWhat do mitochondria make?\n")
	assert.Contains(t, got, RefusalSentence)
	assert.Contains(t, got, "plain text only")

	order := []string{"TEXTBOOK EXCERPTS:", "RECENT CONVERSATION:", "CURRENT CHAPTER:", "STUDENT QUESTION:", "INSTRUCTIONS:"}
	last := -1
	for _, heading := range order {
		i := strings.Index(got, heading)
		assert.Greater(t, i, last, "%s out of order", heading)
		last = i
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder(Config{}, nil)
	first := b.Build(excerpts(), "q", "", "", nil)
	second := b.Build(excerpts(), "q", "", "", nil)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "friendly science tutor", "empty subject uses the default")
	assert.NotContains(t, first, "CURRENT CHAPTER")
	assert.NotContains(t, first, "RECENT CONVERSATION")
}

func TestBuild_HistoryWindow(t *testing.T) {
	var turns []history.Message
	for i := 1; i <= 10; i++ {
		turns = append(turns, history.Message{Role: history.RoleUser, Text: fmt.Sprintf("question %d", i)})
	}

	got := NewBuilder(Config{HistoryWindow: 3}, nil).Build(nil, "q", "", "", turns)
	assert.NotContains(t, got, "question 7\n")
	for i := 8; i <= 10; i++ {
		assert.Contains(t, got, fmt.Sprintf("Student: question %d\n", i))
	}
}

func TestBuild_RefusalWhenNothingMatched(t *testing.T) {
	got := NewBuilder(Config{}, nil).Build(nil, "How do volcanoes form?", "", "", nil)

	assert.Contains(t, got, "TEXTBOOK EXCERPTS:\n"+noExcerpts)
	assert.Contains(t, got, "reply with exactly this sentence and nothing else: "+RefusalSentence)
	assert.Contains(t, got, "Answer only from the textbook excerpts above.")
}

func TestBuild_TruncatesLongExcerpts(t *testing.T) {
	long := chunker.Chunk{Text: strings.Repeat("a", 50), PageStart: 1, PageEnd: 1}
	got := NewBuilder(Config{MaxExcerptChars: 10}, nil).Build([]chunker.Chunk{long}, "q", "", "", nil)
	assert.Contains(t, got, "[Excerpt 1 | page 1]\n"+strings.Repeat("a", 10)+"\n")
	assert.NotContains(t, got, strings.Repeat("a", 11))
}
