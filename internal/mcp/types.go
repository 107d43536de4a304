// Package mcp exposes the textbook tutor as MCP tools.
package mcp

import "time"

// LoadTextbookInput defines the input parameters for the load_textbook tool.
type LoadTextbookInput struct {
	// Source is a local path, an http(s) URL or a "library:" reference.
	Source string `json:"source" jsonschema:"Path, URL or library:<path> of the textbook PDF to load"`
}

// LoadTextbookOutput describes the loaded textbook.
type LoadTextbookOutput struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Pages       int    `json:"pages"`
	Chunks      int    `json:"chunks"`
	FromArchive bool   `json:"from_archive"`
	DurationMS  int64  `json:"duration_ms"`
}

// SearchTextbookInput defines the input parameters for the search_textbook tool.
type SearchTextbookInput struct {
	Query string `json:"query" jsonschema:"The question or terms to look up in the textbook"`
	// ChapterHint boosts passages from the chapter the student is reading.
	ChapterHint string `json:"chapter_hint,omitempty" jsonschema:"Chapter or section the student is currently reading"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"Maximum number of passages to return"`
}

// SearchTextbookOutput contains the ranked passages.
type SearchTextbookOutput struct {
	Excerpts []Excerpt `json:"excerpts"`
	// Message provides informational context (e.g., "No matching passages found").
	Message string `json:"message,omitempty"`
}

// Excerpt is one passage of the textbook.
type Excerpt struct {
	ID        int      `json:"id"`
	PageStart int      `json:"page_start"`
	PageEnd   int      `json:"page_end"`
	Section   string   `json:"section,omitempty"`
	Topic     string   `json:"topic"`
	Keywords  []string `json:"keywords"`
	Text      string   `json:"text"`
}

// AskTextbookInput defines the input parameters for the ask_textbook tool.
type AskTextbookInput struct {
	Question    string `json:"question" jsonschema:"The student's question"`
	ChapterHint string `json:"chapter_hint,omitempty" jsonschema:"Chapter or section the student is currently reading"`
	// Topic selects the conversation thread.
	Topic string `json:"topic,omitempty" jsonschema:"Conversation thread to continue; defaults to general"`
}

// AskTextbookOutput contains the tutor's answer.
type AskTextbookOutput struct {
	Answer string `json:"answer,omitempty"`
	// Refused is true when the textbook does not contain the answer.
	Refused    bool      `json:"refused"`
	QueryTopic string    `json:"query_topic"`
	Excerpts   []Excerpt `json:"excerpts"`
	// Message explains a failed answer in student-facing words.
	Message string `json:"message,omitempty"`
}

// ClearConversationInput defines the input parameters for the clear_conversation tool.
type ClearConversationInput struct {
	Topic string `json:"topic,omitempty" jsonschema:"Conversation thread to clear; defaults to general"`
}

// ClearConversationOutput confirms the cleared thread.
type ClearConversationOutput struct {
	Topic   string `json:"topic"`
	Cleared bool   `json:"cleared"`
}

// StatusInput defines the input parameters for the get_status tool.
// This tool takes no parameters.
type StatusInput struct{}

// StatusOutput reports on the loaded textbook.
type StatusOutput struct {
	Loaded      bool      `json:"loaded"`
	Name        string    `json:"name,omitempty"`
	Key         string    `json:"key,omitempty"`
	Pages       int       `json:"pages"`
	Chunks      int       `json:"chunks"`
	Terms       int       `json:"terms"`
	FromArchive bool      `json:"from_archive"`
	LoadedAt    time.Time `json:"loaded_at,omitzero"`
	Generation  uint64    `json:"generation"`
}

// ListLibraryInput defines the input parameters for the list_library tool.
type ListLibraryInput struct{}

// ListLibraryOutput lists the textbooks in the configured library.
type ListLibraryOutput struct {
	Library string        `json:"library"`
	Books   []LibraryBook `json:"books"`
	Count   int           `json:"count"`
}

// LibraryBook is one PDF in the library.
type LibraryBook struct {
	// Source is the value to pass to load_textbook.
	Source string `json:"source"`
	Size   int    `json:"size"`
}
