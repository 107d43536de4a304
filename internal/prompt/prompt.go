// Package prompt assembles the model prompt from ranked excerpts, recent
// conversation and the student's question. Assembly is deterministic and
// has no side effects.
package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/history"
)

// RefusalSentence is the exact reply required when the excerpts do not
// contain the answer.
const RefusalSentence = "I'm sorry, I couldn't find the answer to that in this textbook."

const (
	// DefaultHistoryWindow is the number of most recent turns included.
	DefaultHistoryWindow = 6

	// DefaultSubject names the tutor's subject when the caller gives none.
	DefaultSubject = "science"

	// DefaultMaxExcerptChars truncates a single excerpt.
	DefaultMaxExcerptChars = 2000

	noExcerpts = "No passages of the textbook matched this question."
)

// Config tunes a Builder. Zero fields take the defaults.
type Config struct {
	HistoryWindow   int
	Subject         string
	MaxExcerptChars int
}

// Builder assembles prompts.
type Builder struct {
	historyWindow   int
	subject         string
	maxExcerptChars int
	logger          *slog.Logger
}

// NewBuilder creates a Builder. A nil logger uses slog.Default().
func NewBuilder(cfg Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if strings.TrimSpace(cfg.Subject) == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.MaxExcerptChars <= 0 {
		cfg.MaxExcerptChars = DefaultMaxExcerptChars
	}
	return &Builder{
		historyWindow:   cfg.HistoryWindow,
		subject:         cfg.Subject,
		maxExcerptChars: cfg.MaxExcerptChars,
		logger:          logger,
	}
}

// Build returns the prompt for query. An empty subject uses the configured
// one; only the last HistoryWindow turns are included.
func (b *Builder) Build(excerpts []chunker.Chunk, query, chapterHint, subject string, turns []history.Message) string {
	if strings.TrimSpace(subject) == "" {
		subject = b.subject
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a friendly %s tutor helping a school student understand their textbook.\n\n", subject)

	sb.WriteString("TEXTBOOK EXCERPTS:\n")
	if len(excerpts) == 0 {
		sb.WriteString(noExcerpts + "\n")
	}
	for i, ch := range excerpts {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[Excerpt %d | %s", i+1, pageLabel(ch))
		if ch.Section != "" {
			fmt.Fprintf(&sb, " | %s", ch.Section)
		}
		sb.WriteString("]\n")
		sb.WriteString(b.truncate(ch))
		sb.WriteString("\n")
	}

	if recent := b.recent(turns); len(recent) > 0 {
		sb.WriteString("\nRECENT CONVERSATION:\n")
		for _, m := range recent {
			fmt.Fprintf(&sb, "%s: %s\n", speaker(m.Role), strings.TrimSpace(m.Text))
		}
	}

	if hint := strings.TrimSpace(chapterHint); hint != "" {
		fmt.Fprintf(&sb, "\nCURRENT CHAPTER: %s\n", hint)
	}

	fmt.Fprintf(&sb, "\nSTUDENT QUESTION:\n%s\n", strings.TrimSpace(query))

	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("1. Answer only from the textbook excerpts above.\n")
	fmt.Fprintf(&sb, "2. If the excerpts answer the question only in part, complete the answer with directly relevant, verifiably correct %s knowledge.\n", subject)
	fmt.Fprintf(&sb, "3. If the answer is not in the excerpts, reply with exactly this sentence and nothing else: %s\n", RefusalSentence)
	sb.WriteString("4. Write plain text only. Do not use markdown, asterisks, underscores, pound signs or any other emphasis characters.\n")
	sb.WriteString("5. Keep the answer short and suited to a school student.\n")

	return sb.String()
}

func (b *Builder) recent(turns []history.Message) []history.Message {
	if len(turns) > b.historyWindow {
		return turns[len(turns)-b.historyWindow:]
	}
	return turns
}

// truncate cuts an excerpt to the configured size.
func (b *Builder) truncate(ch chunker.Chunk) string {
	runes := []rune(ch.Text)
	if len(runes) <= b.maxExcerptChars {
		return ch.Text
	}
	b.logger.Warn("Truncating excerpt", "chunk", ch.ID, "from", len(runes), "to", b.maxExcerptChars)
	return string(runes[:b.maxExcerptChars])
}

func pageLabel(ch chunker.Chunk) string {
	if ch.PageStart == ch.PageEnd {
		return fmt.Sprintf("page %d", ch.PageStart)
	}
	return fmt.Sprintf("pages %d-%d", ch.PageStart, ch.PageEnd)
}

func speaker(role history.Role) string {
	if role == history.RoleUser {
		return "Student"
	}
	return "Tutor"
}
