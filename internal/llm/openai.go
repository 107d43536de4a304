package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIBackendName = "openai"

// OpenAIBackend calls an OpenAI-compatible chat completions endpoint.
type OpenAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend creates a backend for apiKey. An empty baseURL uses the
// public OpenAI endpoint. SDK-level retries are disabled; Client retries.
func NewOpenAIBackend(apiKey, baseURL string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIBackend{client: openai.NewClient(opts...)}, nil
}

func (o *OpenAIBackend) Name() string {
	return openAIBackendName
}

// Generate sends prompt as a single user message.
func (o *OpenAIBackend) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(model),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxOutputTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAI(err, model)
	}

	if len(resp.Choices) == 0 {
		return "", &APIError{Kind: ErrMalformedResponse, Backend: openAIBackendName, Model: model, Message: "no choices"}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", &APIError{Kind: ErrContentBlocked, Backend: openAIBackendName, Model: model, Message: "content filter"}
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", &APIError{Kind: ErrMalformedResponse, Backend: openAIBackendName, Model: model, Message: "empty reply"}
	}
	return choice.Message.Content, nil
}

// classifyOpenAI maps an SDK error onto an error kind.
func classifyOpenAI(err error, model string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	out := &APIError{Backend: openAIBackendName, Model: model}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		out.Kind = ErrTransient
		out.Message = err.Error()
		return out
	}

	out.StatusCode = apiErr.StatusCode
	out.Message = apiErr.Message
	if apiErr.Response != nil {
		out.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
	}

	switch {
	case apiErr.Code == "insufficient_quota":
		out.Kind = ErrQuotaExceeded
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		out.Kind = ErrAuth
	case apiErr.StatusCode == http.StatusNotFound:
		out.Kind = ErrModelNotFound
	case apiErr.StatusCode == http.StatusTooManyRequests:
		out.Kind = ErrRateLimited
	case apiErr.StatusCode >= 500:
		out.Kind = ErrTransient
	default:
		out.Kind = ErrMalformedResponse
	}
	return out
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
