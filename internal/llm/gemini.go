package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/starford/wunjo/internal/apperr"
)

// GeminiAPIVersion is the Generative Language API version.
const GeminiAPIVersion = "v1beta"

// Sampling defaults for Gemini requests.
const (
	geminiTemperature = 0.7
	geminiTopP        = 0.9
	geminiTopK        = 40
)

var geminiSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
}

// GeminiAdapter talks to the Gemini generateContent API.
type GeminiAdapter struct {
	client *genai.Client
	model  string
	retry  Retrier
	logger *slog.Logger
}

func newGemini(ctx context.Context, apiKey, model string, o options) (*GeminiAdapter, error) {
	cfg := &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  o.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: o.baseURL, APIVersion: GeminiAPIVersion},
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	logger := o.logger.With(slog.String("provider", string(Gemini)))
	return &GeminiAdapter{
		client: client,
		model:  model,
		retry:  Retrier{Sleep: o.sleep, Logger: logger},
		logger: logger,
	}, nil
}

func (g *GeminiAdapter) ID() ProviderID { return Gemini }
func (g *GeminiAdapter) Model() string  { return g.model }

// Send makes one generateContent call. The system prompt travels as a
// system instruction; assistant turns use the "model" role.
func (g *GeminiAdapter) Send(ctx context.Context, p Prompt) (string, error) {
	contents := make([]*genai.Content, 0, len(p.Messages))
	for _, m := range p.Messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](geminiTemperature),
		TopP:            genai.Ptr[float32](geminiTopP),
		TopK:            genai.Ptr[float32](geminiTopK),
		MaxOutputTokens: int32(p.maxTokens()),
		SafetySettings:  geminiSafety,
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	g.logger.Debug("llm: send", slog.String("model", g.model), slog.Int("messages", len(p.Messages)))
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", g.classify(err)
	}
	return g.extractText(resp)
}

func (g *GeminiAdapter) extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", &apperr.ProviderError{Kind: apperr.ErrContentFiltered, Provider: string(Gemini), Detail: string(resp.PromptFeedback.BlockReason)}
		}
		return "", &apperr.ProviderError{Kind: apperr.ErrParseFailure, Provider: string(Gemini), Detail: "no candidates in response"}
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII, genai.FinishReasonRecitation:
		return "", &apperr.ProviderError{Kind: apperr.ErrContentFiltered, Provider: string(Gemini), Detail: string(cand.FinishReason)}
	}
	if cand.Content == nil {
		return "", &apperr.ProviderError{Kind: apperr.ErrParseFailure, Provider: string(Gemini), Detail: "candidate has no content"}
	}

	var b strings.Builder
	found := false
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
		found = true
	}
	if !found {
		return "", &apperr.ProviderError{Kind: apperr.ErrParseFailure, Provider: string(Gemini), Detail: "candidate has no text"}
	}
	return b.String(), nil
}

// SendWithRetry implements Provider.
func (g *GeminiAdapter) SendWithRetry(ctx context.Context, p Prompt, maxRetries int) (string, error) {
	return g.retry.Do(ctx, maxRetries, func(ctx context.Context) (string, error) {
		return g.Send(ctx, p)
	})
}

// TestConnection implements Provider.
func (g *GeminiAdapter) TestConnection(ctx context.Context) (bool, error) {
	return testConnection(ctx, g)
}

// CalculateCost implements Provider.
func (g *GeminiAdapter) CalculateCost(inputTokens, outputTokens int) Cost {
	info, _ := Lookup(Gemini)
	return costFor(info.Pricing, inputTokens, outputTokens)
}

func (g *GeminiAdapter) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("gemini: %w", err)
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr):
		apiErr = *apiErrPtr
	default:
		return &apperr.ProviderError{Kind: apperr.ErrServiceUnavailable, Provider: string(Gemini), Detail: err.Error()}
	}

	kind := apperr.KindForStatus(apiErr.Code)
	// Gemini rejects bad keys with 400 INVALID_ARGUMENT plus a reason detail.
	if apiErr.Code == http.StatusBadRequest && hasReason(apiErr.Details, "API_KEY_INVALID") {
		kind = apperr.ErrInvalidCredentials
	}
	detail := apiErr.Message
	if detail == "" {
		detail = http.StatusText(apiErr.Code)
	}
	return &apperr.ProviderError{Kind: kind, Provider: string(Gemini), Status: apiErr.Code, Detail: detail}
}

func hasReason(details []map[string]any, reason string) bool {
	for _, d := range details {
		if r, ok := d["reason"].(string); ok && r == reason {
			return true
		}
	}
	return false
}
