package llm

import "context"

// Options are the generation parameters sent with a prompt. Zero fields
// leave the backend default in place.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
	TopK            int
	TopP            float64
	// SafetyThreshold is a Gemini harm block threshold such as
	// "BLOCK_MEDIUM_AND_ABOVE". Other backends ignore it.
	SafetyThreshold string
}

// Backend sends one prompt to a hosted model. Failures are returned as
// *APIError so the client can decide between retry, fallback and abort.
type Backend interface {
	Name() string
	Generate(ctx context.Context, model, prompt string, opts Options) (string, error)
}

// Target is a backend and the model to ask on it.
type Target struct {
	Backend Backend
	Model   string
}

func (t Target) String() string {
	return t.Backend.Name() + "/" + t.Model
}
