package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const geminiBackendName = "gemini"

// DefaultSafetyThreshold blocks medium and high probability harm.
const DefaultSafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"

var safetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

var blockedFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonRecitation:        true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonSPII:              true,
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiBackend calls the Gemini API through the genai SDK.
type GeminiBackend struct {
	generate generateFunc
}

// NewGeminiBackend creates a Gemini backend for apiKey.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiBackend{generate: client.Models.GenerateContent}, nil
}

func (g *GeminiBackend) Name() string {
	return geminiBackendName
}

// Generate sends prompt as a single user turn.
func (g *GeminiBackend) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.generate(ctx, model, contents, geminiConfig(opts))
	if err != nil {
		return "", classifyGemini(err, model)
	}
	return geminiText(resp, model)
}

func geminiConfig(opts Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(opts.TopP))
	}
	if opts.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(opts.TopK))
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}

	threshold := opts.SafetyThreshold
	if threshold == "" {
		threshold = DefaultSafetyThreshold
	}
	for _, category := range safetyCategories {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThreshold(threshold),
		})
	}
	return cfg
}

// geminiText pulls the reply text out of a response, reporting blocked and
// empty replies as errors.
func geminiText(resp *genai.GenerateContentResponse, model string) (string, error) {
	newErr := func(kind error, msg string) error {
		return &APIError{Kind: kind, Backend: geminiBackendName, Model: model, Message: msg}
	}

	if resp == nil {
		return "", newErr(ErrMalformedResponse, "nil response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", newErr(ErrContentBlocked, "prompt blocked: "+string(fb.BlockReason))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", newErr(ErrMalformedResponse, "no candidates")
	}

	candidate := resp.Candidates[0]
	if blockedFinishReasons[candidate.FinishReason] {
		return "", newErr(ErrContentBlocked, "finish reason "+string(candidate.FinishReason))
	}
	if candidate.Content == nil {
		return "", newErr(ErrMalformedResponse, "candidate has no content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", newErr(ErrMalformedResponse, "empty reply")
	}
	return sb.String(), nil
}

// classifyGemini maps an SDK error onto an error kind.
func classifyGemini(err error, model string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	out := &APIError{Backend: geminiBackendName, Model: model}
	apiErr, ok := geminiAPIError(err)
	if !ok {
		var netErr net.Error
		out.Kind = ErrTransient
		if errors.As(err, &netErr) {
			out.Message = "network: " + netErr.Error()
		} else {
			out.Message = err.Error()
		}
		return out
	}

	out.StatusCode = apiErr.Code
	out.Message = apiErr.Message
	switch {
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden ||
		strings.Contains(apiErr.Message, "API key not valid"):
		out.Kind = ErrAuth
	case apiErr.Code == http.StatusTooManyRequests:
		out.RetryAfter = geminiRetryDelay(apiErr.Details)
		if out.RetryAfter == 0 && strings.Contains(strings.ToLower(apiErr.Message), "quota") {
			out.Kind = ErrQuotaExceeded
		} else {
			out.Kind = ErrRateLimited
		}
	case apiErr.Code == http.StatusNotFound:
		out.Kind = ErrModelNotFound
	case apiErr.Code >= 500:
		out.Kind = ErrTransient
	default:
		out.Kind = ErrMalformedResponse
	}
	return out
}

// geminiAPIError finds a genai.APIError in the chain whether it was
// returned by value or by pointer.
func geminiAPIError(err error) (genai.APIError, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case genai.APIError:
			return v, true
		case *genai.APIError:
			if v != nil {
				return *v, true
			}
		}
	}
	return genai.APIError{}, false
}

// geminiRetryDelay reads the RetryInfo detail, e.g. {"retryDelay": "17s"}.
func geminiRetryDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		typ, _ := d["@type"].(string)
		if !strings.HasSuffix(typ, "google.rpc.RetryInfo") {
			continue
		}
		raw, _ := d["retryDelay"].(string)
		if delay, err := time.ParseDuration(raw); err == nil && delay > 0 {
			return delay
		}
	}
	return 0
}
