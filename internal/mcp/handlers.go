package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/library"
	"github.com/mdsalman850/co-teachers-sub003/internal/session"
)

const noDocumentMessage = "No textbook is loaded. Use load_textbook first."

// makeLoadHandler creates the load_textbook tool handler.
func makeLoadHandler(loader Loader) func(
	context.Context, *mcp.CallToolRequest, LoadTextbookInput,
) (*mcp.CallToolResult, LoadTextbookOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input LoadTextbookInput) (
		*mcp.CallToolResult, LoadTextbookOutput, error,
	) {
		if strings.TrimSpace(input.Source) == "" {
			return nil, LoadTextbookOutput{}, fmt.Errorf("source is required")
		}

		res, err := loader.LoadRef(ctx, input.Source)
		if err != nil {
			return nil, LoadTextbookOutput{}, fmt.Errorf("failed to load textbook: %w", err)
		}

		return nil, LoadTextbookOutput{
			Name:        res.Name,
			Key:         res.Key,
			Pages:       res.Pages,
			Chunks:      len(res.Chunks),
			FromArchive: res.FromArchive,
			DurationMS:  res.Duration.Milliseconds(),
		}, nil
	}
}

// makeSearchHandler creates the search_textbook tool handler.
// Returns passages only; the model is not called.
func makeSearchHandler(tutor *session.Tutor) func(
	context.Context, *mcp.CallToolRequest, SearchTextbookInput,
) (*mcp.CallToolResult, SearchTextbookOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchTextbookInput) (
		*mcp.CallToolResult, SearchTextbookOutput, error,
	) {
		found, err := tutor.Search(input.Query, input.ChapterHint, input.TopK)
		if errors.Is(err, session.ErrNoDocument) {
			return nil, SearchTextbookOutput{Excerpts: []Excerpt{}, Message: noDocumentMessage}, nil
		}
		if err != nil {
			return nil, SearchTextbookOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(found) == 0 {
			return nil, SearchTextbookOutput{
				Excerpts: []Excerpt{},
				Message:  "No matching passages found. Try other words from the textbook.",
			}, nil
		}
		return nil, SearchTextbookOutput{Excerpts: toExcerpts(found)}, nil
	}
}

// makeAskHandler creates the ask_textbook tool handler. Model failures are
// reported in Message rather than as tool errors so the student sees them.
func makeAskHandler(tutor *session.Tutor) func(
	context.Context, *mcp.CallToolRequest, AskTextbookInput,
) (*mcp.CallToolResult, AskTextbookOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskTextbookInput) (
		*mcp.CallToolResult, AskTextbookOutput, error,
	) {
		answer, err := tutor.Ask(ctx, session.Question{
			Text:        input.Question,
			ChapterHint: input.ChapterHint,
			Topic:       input.Topic,
		})
		switch {
		case errors.Is(err, session.ErrNoDocument):
			return nil, AskTextbookOutput{Excerpts: []Excerpt{}, Message: noDocumentMessage}, nil
		case errors.Is(err, session.ErrEmptyQuestion):
			return nil, AskTextbookOutput{}, fmt.Errorf("question is required")
		case err != nil && answer != nil:
			return nil, AskTextbookOutput{
				QueryTopic: string(answer.QueryTopic),
				Excerpts:   toExcerpts(answer.Excerpts),
				Message:    answer.Message,
			}, nil
		case err != nil:
			return nil, AskTextbookOutput{}, fmt.Errorf("ask failed: %w", err)
		}

		return nil, AskTextbookOutput{
			Answer:     answer.Text,
			Refused:    answer.Refused,
			QueryTopic: string(answer.QueryTopic),
			Excerpts:   toExcerpts(answer.Excerpts),
		}, nil
	}
}

// makeClearHandler creates the clear_conversation tool handler.
func makeClearHandler(tutor *session.Tutor) func(
	context.Context, *mcp.CallToolRequest, ClearConversationInput,
) (*mcp.CallToolResult, ClearConversationOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ClearConversationInput) (
		*mcp.CallToolResult, ClearConversationOutput, error,
	) {
		topic := input.Topic
		if strings.TrimSpace(topic) == "" {
			topic = session.DefaultTopic
		}
		if err := tutor.ClearConversation(ctx, topic); err != nil {
			if errors.Is(err, session.ErrNoDocument) {
				return nil, ClearConversationOutput{Topic: topic}, nil
			}
			return nil, ClearConversationOutput{}, fmt.Errorf("failed to clear conversation: %w", err)
		}
		return nil, ClearConversationOutput{Topic: topic, Cleared: true}, nil
	}
}

// makeStatusHandler creates the get_status tool handler.
func makeStatusHandler(tutor *session.Tutor) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		s := tutor.Status()
		return nil, StatusOutput{
			Loaded:      s.Loaded,
			Name:        s.Name,
			Key:         s.Key,
			Pages:       s.Pages,
			Chunks:      s.Chunks,
			Terms:       s.Terms,
			FromArchive: s.FromArchive,
			LoadedAt:    s.LoadedAt,
			Generation:  s.Generation,
		}, nil
	}
}

// makeListLibraryHandler creates the list_library tool handler.
func makeListLibraryHandler(lib Library) func(
	context.Context, *mcp.CallToolRequest, ListLibraryInput,
) (*mcp.CallToolResult, ListLibraryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListLibraryInput) (
		*mcp.CallToolResult, ListLibraryOutput, error,
	) {
		entries, err := lib.List(ctx)
		if err != nil {
			return nil, ListLibraryOutput{}, fmt.Errorf("failed to list library: %w", err)
		}

		books := make([]LibraryBook, 0, len(entries))
		for _, e := range entries {
			books = append(books, LibraryBook{Source: library.LibraryPrefix + e.Path, Size: e.Size})
		}
		return nil, ListLibraryOutput{
			Library: lib.String(),
			Books:   books,
			Count:   len(books),
		}, nil
	}
}

func toExcerpts(chunks []chunker.Chunk) []Excerpt {
	out := make([]Excerpt, 0, len(chunks))
	for _, c := range chunks {
		keywords := c.Keywords
		if keywords == nil {
			keywords = []string{} // Ensure non-nil for JSON marshaling
		}
		out = append(out, Excerpt{
			ID:        c.ID,
			PageStart: c.PageStart,
			PageEnd:   c.PageEnd,
			Section:   c.Section,
			Topic:     string(c.Topic),
			Keywords:  keywords,
			Text:      c.Text,
		})
	}
	return out
}
