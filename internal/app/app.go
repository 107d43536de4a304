// Package app builds a ready-to-use tutor from configuration. Both binaries
// share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/config"
	"github.com/mdsalman850/co-teachers-sub003/internal/document"
	"github.com/mdsalman850/co-teachers-sub003/internal/history"
	"github.com/mdsalman850/co-teachers-sub003/internal/indexer"
	"github.com/mdsalman850/co-teachers-sub003/internal/library"
	"github.com/mdsalman850/co-teachers-sub003/internal/llm"
	"github.com/mdsalman850/co-teachers-sub003/internal/prompt"
	"github.com/mdsalman850/co-teachers-sub003/internal/rerank"
	"github.com/mdsalman850/co-teachers-sub003/internal/search"
	"github.com/mdsalman850/co-teachers-sub003/internal/session"
	"github.com/mdsalman850/co-teachers-sub003/internal/storage"
)

const fetchTimeout = 2 * time.Minute

// App holds the wired components. Archive and Library are nil when their
// backends are not configured.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Tutor    *session.Tutor
	Engine   *search.Engine
	Resolver *library.Resolver
	Library  *library.GitHubLibrary
	History  *history.Manager
	Archive  *storage.QdrantStorage
	Model    session.Completer

	store history.Store
}

// NewLogger returns a text logger writing to w at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// New wires every component from cfg. A missing model API key does not fail
// construction; questions then fail with an authentication error.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	ch := chunker.New(
		chunker.WithChunkSize(cfg.Chunker.ChunkSize),
		chunker.WithOverlap(cfg.Chunker.Overlap),
		chunker.WithMinLength(cfg.Chunker.MinLength),
		chunker.WithMaxKeywords(cfg.Chunker.MaxKeywords),
	)

	var archive indexer.Archive
	if cfg.Qdrant.Enabled {
		store, err := storage.NewQdrantStorage(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, logger)
		if err != nil {
			return nil, fmt.Errorf("connect archive: %w", err)
		}
		if err := store.EnsureCollection(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure archive collection: %w", err)
		}
		a.Archive = store
		archive = store
	}

	pipeline := indexer.NewPipeline(document.NewExtractor(logger), ch, cfg.Search.FieldWeights, archive, logger)

	a.Engine = search.NewEngine(search.Config{
		Weights:         cfg.Search.Weights,
		TopK:            cfg.Search.TopK,
		MaxResults:      cfg.Search.MaxResults,
		MaxContextChars: cfg.Search.MaxContextChars,
	}, logger)

	builder := prompt.NewBuilder(prompt.Config{
		HistoryWindow:   cfg.Prompt.HistoryWindow,
		Subject:         cfg.Prompt.Subject,
		MaxExcerptChars: cfg.Prompt.MaxExcerptChars,
	}, logger)

	model, err := newModel(ctx, cfg.Model, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Model = model

	if cfg.History.Path != "" {
		store, err := history.OpenSQLite(cfg.History.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.store = store
	} else {
		a.store = history.NewMemoryStore()
	}
	a.History = history.NewManager(a.store, history.Config{
		MaxMessages: cfg.History.MaxMessages,
		TTL:         cfg.History.TTL,
	}, logger)

	if cfg.Library.Owner != "" && cfg.Library.Repo != "" {
		gh, err := library.NewGitHubClient(cfg.Library.Token)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("github client: %w", err)
		}
		a.Library = library.NewGitHubLibrary(gh, cfg.Library.Owner, cfg.Library.Repo, cfg.Library.BasePath)
	}
	a.Resolver = &library.Resolver{
		HTTP:     &http.Client{Timeout: fetchTimeout},
		Library:  a.Library,
		MaxBytes: library.DefaultMaxBytes,
	}

	a.Tutor, err = session.New(session.Components{
		Pipeline: pipeline,
		Engine:   a.Engine,
		Reranker: rerank.New(cfg.Rerank),
		Builder:  builder,
		Model:    model,
		History:  a.History,
	}, session.Config{
		Subject: cfg.Prompt.Subject,
		TopK:    cfg.Search.TopK,
		Model: llm.Options{
			Temperature:     cfg.Model.Temperature,
			MaxOutputTokens: cfg.Model.MaxOutputTokens,
			TopK:            cfg.Model.TopK,
			TopP:            cfg.Model.TopP,
			SafetyThreshold: cfg.Model.SafetyThreshold,
		},
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug("Tutor ready",
		"provider", cfg.Model.Provider,
		"models", cfg.Model.Models,
		"archive", a.Archive != nil,
		"library", a.Library != nil,
		"history", cfg.History.Path)
	return a, nil
}

// LoadRef resolves ref through the resolver and loads it into the tutor.
func (a *App) LoadRef(ctx context.Context, ref string) (*indexer.Result, error) {
	doc, err := a.Resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return a.Tutor.Load(ctx, doc)
}

// Health reports the first failing backend, if any.
func (a *App) Health(ctx context.Context) error {
	if err := a.store.Health(ctx); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if a.Archive != nil {
		if err := a.Archive.Health(ctx); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}
	return nil
}

// Close stops history timers and closes the stores.
func (a *App) Close() error {
	var errs []error
	if a.History != nil {
		a.History.Close()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.Archive != nil {
		errs = append(errs, a.Archive.Close())
	}
	return errors.Join(errs...)
}

func newModel(ctx context.Context, cfg config.ModelConfig, logger *slog.Logger) (session.Completer, error) {
	if cfg.APIKey == "" {
		logger.Warn("Model API key is not set, questions will fail", "env", cfg.APIKeyEnv)
		return unconfigured{env: cfg.APIKeyEnv, provider: cfg.Provider}, nil
	}

	var backend llm.Backend
	switch cfg.Provider {
	case config.ProviderOpenAI:
		b, err := llm.NewOpenAIBackend(cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		b, err := llm.NewGeminiBackend(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		backend = b
	}

	targets := make([]llm.Target, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		targets = append(targets, llm.Target{Backend: backend, Model: m})
	}
	return llm.NewClient(targets, llm.Config{
		MaxAttempts:       cfg.MaxAttempts,
		InitialInterval:   cfg.InitialBackoff,
		MaxInterval:       cfg.MaxBackoff,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, logger)
}

// unconfigured answers every prompt with an authentication failure.
type unconfigured struct {
	env      string
	provider string
}

func (u unconfigured) Complete(context.Context, string, llm.Options) (string, error) {
	return "", &llm.APIError{
		Kind:    llm.ErrAuth,
		Backend: u.provider,
		Message: u.env + " is not set",
	}
}
