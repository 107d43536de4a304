// Package session ties the retrieval pipeline together: it holds the loaded
// textbook, answers questions through search, re-ranking, prompt building and
// the model client, and keeps the conversation history per textbook and
// conversation topic.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/history"
	"github.com/mdsalman850/co-teachers-sub003/internal/indexer"
	"github.com/mdsalman850/co-teachers-sub003/internal/library"
	"github.com/mdsalman850/co-teachers-sub003/internal/llm"
	"github.com/mdsalman850/co-teachers-sub003/internal/prompt"
	"github.com/mdsalman850/co-teachers-sub003/internal/rerank"
	"github.com/mdsalman850/co-teachers-sub003/internal/search"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

// DefaultTopic is the conversation topic used when a question names none.
const DefaultTopic = "general"

// Completer sends a prompt to a model. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Config tunes a Tutor. Zero fields take the defaults of each component.
type Config struct {
	Subject string
	TopK    int
	Model   llm.Options
}

// Components are the collaborators a Tutor drives.
type Components struct {
	Pipeline *indexer.Pipeline
	Engine   *search.Engine
	Reranker *rerank.Reranker
	Builder  *prompt.Builder
	Model    Completer
	History  *history.Manager
}

// Question is one student turn.
type Question struct {
	Text string
	// ChapterHint is the chapter the student is reading, if known.
	ChapterHint string
	// Topic selects the conversation thread; empty means DefaultTopic.
	Topic string
}

// Answer is the outcome of Ask.
type Answer struct {
	Text     string
	Excerpts []chunker.Chunk
	// QueryTopic is the subject label detected for the question.
	QueryTopic vocab.Topic
	// Refused is true when the model replied with the refusal sentence.
	Refused bool
	// Message is a student-facing explanation when Ask failed.
	Message string
}

// Status describes the loaded textbook.
type Status struct {
	Loaded      bool
	Name        string
	Key         string
	Pages       int
	Chunks      int
	Terms       int
	FromArchive bool
	LoadedAt    time.Time
	Generation  uint64
}

// Tutor answers questions about one loaded textbook at a time. It is safe
// for concurrent use.
type Tutor struct {
	pipeline *indexer.Pipeline
	engine   *search.Engine
	reranker *rerank.Reranker
	builder  *prompt.Builder
	model    Completer
	history  *history.Manager
	cfg      Config
	logger   *slog.Logger

	mu         sync.Mutex
	doc        *indexer.Result
	loadedAt   time.Time
	generation uint64
	askSeq     uint64
	cancelAsk  context.CancelFunc
}

// New creates a Tutor. A nil logger uses slog.Default().
func New(c Components, cfg Config, logger *slog.Logger) (*Tutor, error) {
	if c.Pipeline == nil || c.Engine == nil || c.Reranker == nil || c.Builder == nil || c.Model == nil || c.History == nil {
		return nil, fmt.Errorf("session: all components are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tutor{
		pipeline: c.Pipeline,
		engine:   c.Engine,
		reranker: c.Reranker,
		builder:  c.Builder,
		model:    c.Model,
		history:  c.History,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Load replaces the current textbook with doc. A load that is overtaken by
// a later load returns ErrSuperseded and leaves the later one in place. A
// failed load keeps the previous textbook.
func (t *Tutor) Load(ctx context.Context, doc *library.Document) (*indexer.Result, error) {
	gen := t.beginLoad()

	res, err := t.pipeline.Index(ctx, doc)
	if err != nil {
		t.logger.Warn("Failed to load textbook", "name", doc.Name, "error", err)
		return nil, err
	}
	return res, t.install(gen, res)
}

// LoadFile loads a PDF from disk.
func (t *Tutor) LoadFile(ctx context.Context, path string) (*indexer.Result, error) {
	doc, err := library.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return t.Load(ctx, doc)
}

// LoadText loads already extracted, page-marked text.
func (t *Tutor) LoadText(name, text string, pages int) (*indexer.Result, error) {
	gen := t.beginLoad()

	res, err := t.pipeline.IndexText(name, text, pages)
	if err != nil {
		return nil, err
	}
	return res, t.install(gen, res)
}

// beginLoad starts a new generation and abandons any question in flight.
func (t *Tutor) beginLoad() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	if t.cancelAsk != nil {
		t.cancelAsk()
		t.cancelAsk = nil
	}
	return t.generation
}

func (t *Tutor) install(gen uint64, res *indexer.Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		t.logger.Debug("Discarding superseded load", "name", res.Name)
		return ErrSuperseded
	}
	t.doc = res
	t.loadedAt = time.Now()
	return nil
}

func (t *Tutor) current() (*indexer.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.doc == nil {
		return nil, ErrNoDocument
	}
	return t.doc, nil
}

// Search runs the search engine and re-ranker without asking the model.
// A topK of 0 uses the configured default.
func (t *Tutor) Search(query, chapterHint string, topK int) ([]chunker.Chunk, error) {
	doc, err := t.current()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = t.cfg.TopK
	}
	found := t.engine.Search(doc.Index, doc.Chunks, query, topK)
	return t.reranker.Rerank(found, query, chapterHint), nil
}

// Ask answers q from the loaded textbook. The student's turn is recorded
// before the model is called, so history survives a failed answer. Asking
// again cancels the previous question; its answer is then discarded with
// ErrSuperseded. On a model failure the returned Answer carries a
// student-facing Message alongside the error.
func (t *Tutor) Ask(ctx context.Context, q Question) (*Answer, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	topic := strings.TrimSpace(q.Topic)
	if topic == "" {
		topic = DefaultTopic
	}

	t.mu.Lock()
	if t.doc == nil {
		t.mu.Unlock()
		return nil, ErrNoDocument
	}
	doc := t.doc
	gen := t.generation
	t.askSeq++
	seq := t.askSeq
	if t.cancelAsk != nil {
		t.cancelAsk()
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancelAsk = cancel
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		if t.askSeq == seq {
			t.cancelAsk = nil
		}
		t.mu.Unlock()
		cancel()
	}()

	key := ConversationKey(doc.Key, topic)
	parsed := search.ParseQuery(text)

	excerpts := t.engine.Search(doc.Index, doc.Chunks, text, t.cfg.TopK)
	excerpts = t.reranker.Rerank(excerpts, text, q.ChapterHint)

	turns, err := t.history.Messages(ctx, key)
	if err != nil {
		t.logger.Warn("Failed to read conversation history", "key", key, "error", err)
		turns = nil
	}

	p := t.builder.Build(excerpts, text, q.ChapterHint, t.cfg.Subject, turns)

	if _, err := t.history.Append(ctx, key, history.Message{Role: history.RoleUser, Text: text}); err != nil {
		t.logger.Warn("Failed to record question", "key", key, "error", err)
	}

	answer := &Answer{Excerpts: excerpts, QueryTopic: parsed.Topic}
	t.logger.Debug("Asking model", "key", key, "excerpts", len(excerpts), "prompt_chars", len(p))

	reply, err := t.model.Complete(ctx, p, t.cfg.Model)
	if !t.stillCurrent(seq, gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		answer.Message = llm.UserMessage(err)
		t.logger.Warn("Model call failed", "key", key, "error", err)
		return answer, fmt.Errorf("ask: %w", err)
	}

	answer.Text = reply
	answer.Refused = IsRefusal(reply)

	if _, err := t.history.Append(ctx, key, history.Message{Role: history.RoleAssistant, Text: reply}); err != nil {
		t.logger.Warn("Failed to record answer", "key", key, "error", err)
	}
	return answer, nil
}

func (t *Tutor) stillCurrent(seq, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return seq == t.askSeq && gen == t.generation
}

// Conversation returns the stored turns for topic on the loaded textbook.
func (t *Tutor) Conversation(ctx context.Context, topic string) ([]history.Message, error) {
	doc, err := t.current()
	if err != nil {
		return nil, err
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return t.history.Messages(ctx, ConversationKey(doc.Key, topic))
}

// ClearConversation deletes the history for topic on the loaded textbook.
func (t *Tutor) ClearConversation(ctx context.Context, topic string) error {
	doc, err := t.current()
	if err != nil {
		return err
	}
	if topic == "" {
		topic = DefaultTopic
	}
	if err := t.history.Clear(ctx, ConversationKey(doc.Key, topic)); err != nil && !errors.Is(err, history.ErrNotFound) {
		return err
	}
	return nil
}

// Status reports on the loaded textbook.
func (t *Tutor) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Status{Generation: t.generation}
	if t.doc == nil {
		return s
	}
	s.Loaded = true
	s.Name = t.doc.Name
	s.Key = t.doc.Key
	s.Pages = t.doc.Pages
	s.Chunks = len(t.doc.Chunks)
	s.Terms = t.doc.Index.Terms()
	s.FromArchive = t.doc.FromArchive
	s.LoadedAt = t.loadedAt
	return s
}

// ConversationKey scopes history to one textbook and one topic.
func ConversationKey(documentKey, topic string) string {
	return documentKey + ":" + strings.ToLower(topic)
}

// IsRefusal reports whether reply is the fixed refusal sentence.
func IsRefusal(reply string) bool {
	return strings.TrimSpace(reply) == prompt.RefusalSentence
}
