package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"

	"github.com/starford/wunjo/internal/apperr"
)

// AnthropicVersion is the Messages API version sent with every request.
const AnthropicVersion = "2023-06-01"

// AnthropicAdapter talks to the Anthropic Messages API.
type AnthropicAdapter struct {
	client anthropic.Client
	model  string
	retry  Retrier
	logger *slog.Logger
}

func newAnthropic(apiKey, model string, o options) *AnthropicAdapter {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHeader("anthropic-version", AnthropicVersion),
		// Retries are owned by Retrier so the policy is the same for every backend.
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}
	logger := o.logger.With(slog.String("provider", string(Claude)))
	return &AnthropicAdapter{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
		retry:  Retrier{Sleep: o.sleep, Logger: logger},
		logger: logger,
	}
}

func (a *AnthropicAdapter) ID() ProviderID { return Claude }
func (a *AnthropicAdapter) Model() string  { return a.model }

// Send makes one Messages API call.
func (a *AnthropicAdapter) Send(ctx context.Context, p Prompt) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(p.maxTokens()),
		Messages:  make([]anthropic.MessageParam, 0, len(p.Messages)),
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}
	for _, m := range p.Messages {
		switch m.Role {
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	a.logger.Debug("llm: send", slog.String("model", a.model), slog.Int("messages", len(p.Messages)))
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", a.classify(err)
	}

	// A refusal may arrive with partial text; none of it is an answer.
	if msg.StopReason == "refusal" {
		return "", &apperr.ProviderError{Kind: apperr.ErrContentFiltered, Provider: string(Claude), Detail: "refusal"}
	}

	var b strings.Builder
	found := false
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
			found = true
		}
	}
	if !found {
		return "", &apperr.ProviderError{Kind: apperr.ErrParseFailure, Provider: string(Claude), Detail: "no text content in response"}
	}
	return b.String(), nil
}

// SendWithRetry implements Provider.
func (a *AnthropicAdapter) SendWithRetry(ctx context.Context, p Prompt, maxRetries int) (string, error) {
	return a.retry.Do(ctx, maxRetries, func(ctx context.Context) (string, error) {
		return a.Send(ctx, p)
	})
}

// TestConnection implements Provider.
func (a *AnthropicAdapter) TestConnection(ctx context.Context) (bool, error) {
	return testConnection(ctx, a)
}

// CalculateCost implements Provider.
func (a *AnthropicAdapter) CalculateCost(inputTokens, outputTokens int) Cost {
	info, _ := Lookup(Claude)
	return costFor(info.Pricing, inputTokens, outputTokens)
}

func (a *AnthropicAdapter) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("claude: %w", err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		detail := gjson.Get(apiErr.RawJSON(), "error.message").String()
		if detail == "" {
			detail = http.StatusText(apiErr.StatusCode)
		}
		return &apperr.ProviderError{
			Kind:     apperr.KindForStatus(apiErr.StatusCode),
			Provider: string(Claude),
			Status:   apiErr.StatusCode,
			Detail:   detail,
		}
	}
	return &apperr.ProviderError{Kind: apperr.ErrServiceUnavailable, Provider: string(Claude), Detail: err.Error()}
}
