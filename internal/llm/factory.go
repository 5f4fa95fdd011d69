package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/wunjo/internal/apperr"
)

// ProviderID identifies a supported backend.
type ProviderID string

const (
	Gemini ProviderID = "gemini"
	Claude ProviderID = "claude"
)

// ProviderIDs lists the supported backends.
func ProviderIDs() []ProviderID { return []ProviderID{Gemini, Claude} }

// ParseProvider validates s against the supported backends.
func ParseProvider(s string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	switch id {
	case Gemini, Claude:
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", apperr.ErrUnknownProvider, s)
}

// DefaultModel returns the model used when none is configured.
func (id ProviderID) DefaultModel() string {
	info, _ := Lookup(id)
	return info.DefaultModel
}

type options struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	sleep      SleepFunc
}

// Option configures an adapter.
type Option func(*options)

// WithBaseURL points the adapter at a different endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(o *options) { o.sleep = fn }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), sleep: Sleep}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the adapter for id. An empty model selects the provider default.
func New(ctx context.Context, id ProviderID, apiKey, model string, opts ...Option) (Provider, error) {
	if model == "" {
		model = id.DefaultModel()
	}
	o := buildOptions(opts)
	switch id {
	case Gemini:
		return newGemini(ctx, apiKey, model, o)
	case Claude:
		return newAnthropic(apiKey, model, o), nil
	}
	return nil, fmt.Errorf("%w: %q", apperr.ErrUnknownProvider, string(id))
}

// connectionPrompt is the fixed prompt used by TestConnection.
var connectionPrompt = Prompt{
	System:    "You are a helpful assistant.",
	Messages:  []Message{{Role: RoleUser, Content: `Say "Connection successful" if you can read this.`}},
	MaxTokens: 50,
}

func testConnection(ctx context.Context, s Sender) (bool, error) {
	text, err := s.Send(ctx, connectionPrompt)
	if err != nil {
		return false, fmt.Errorf("connection test failed: %w", err)
	}
	return strings.Contains(strings.ToLower(text), "connection successful"), nil
}
