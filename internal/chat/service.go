// Package chat runs assistant turns: it analyzes the question, gathers the
// workspace data it needs, builds the prompt and dispatches it to the
// configured provider. Failures leave this package as *Error values.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/wunjo/internal/aggregator"
	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/llm"
	"github.com/starford/wunjo/internal/prompt"
)

// Token guesses used by EstimateCost for the data context and the reply.
const (
	contextTokenAllowance = 200
	replyTokenAllowance   = 200
)

// DataProvider gathers the workspace data a turn needs.
type DataProvider interface {
	GetData(ctx context.Context, need analyzer.DataNeed) *aggregator.Data
}

// Reply is the outcome of one turn.
type Reply struct {
	Text       string           `json:"text"`
	Intent     analyzer.Intent  `json:"intent"`
	Confidence float64          `json:"confidence"`
	DataUsed   *aggregator.Data `json:"dataUsed"`
}

// ProviderInfo describes the provider a Service is bound to.
type ProviderInfo struct {
	Type  llm.ProviderID `json:"type"`
	Model string         `json:"model"`
	llm.Info
}

// Service holds no per-turn state; concurrent turns are safe.
type Service struct {
	provider   llm.Provider
	data       DataProvider
	analyzer   *analyzer.Analyzer
	builder    *prompt.Builder
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithAnalyzer(a *analyzer.Analyzer) Option { return func(s *Service) { s.analyzer = a } }
func WithBuilder(b *prompt.Builder) Option     { return func(s *Service) { s.builder = b } }
func WithLogger(l *slog.Logger) Option         { return func(s *Service) { s.logger = l } }

// WithMaxRetries sets the attempt budget per turn.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithRequestTimeout bounds the provider call, retries included.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService binds provider and data to the default analyzer and builder.
func NewService(provider llm.Provider, data DataProvider, opts ...Option) *Service {
	s := &Service{
		provider:   provider,
		data:       data,
		analyzer:   analyzer.New(analyzer.Config{}),
		builder:    prompt.New(),
		maxRetries: llm.DefaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessQuery answers message given the prior conversation.
func (s *Service) ProcessQuery(ctx context.Context, message string, history []llm.Message) (*Reply, error) {
	analysis := s.analyzer.Analyze(message)
	data := s.data.GetData(ctx, analysis.DataNeeded)
	p := s.builder.Build(data, history, message)

	s.logger.Info("chat: query",
		slog.String("intent", string(analysis.Intent)),
		slog.String("time_range", string(analysis.DataNeeded.TimeRange)),
		slog.Int("history", len(history)),
		slog.Int("estimated_tokens", prompt.EstimateTokens(p)),
	)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, err := s.provider.SendWithRetry(callCtx, p, s.maxRetries)
	if err != nil {
		ce := classify(err)
		s.logger.Error("chat: query failed",
			slog.String("category", string(ce.Category)),
			slog.String("error", err.Error()),
		)
		return nil, ce
	}

	return &Reply{
		Text:       text,
		Intent:     analysis.Intent,
		Confidence: analysis.Confidence,
		DataUsed:   data,
	}, nil
}

// Analyze exposes the query analysis without calling the provider.
func (s *Service) Analyze(message string) analyzer.Result {
	return s.analyzer.Analyze(message)
}

// TestConnection checks that the provider accepts the configured key.
func (s *Service) TestConnection(ctx context.Context) (bool, error) {
	ok, err := s.provider.TestConnection(ctx)
	if err != nil {
		return false, classify(err)
	}
	return ok, nil
}

// ProviderInfo returns the bound provider and its catalog metadata.
func (s *Service) ProviderInfo() ProviderInfo {
	info, _ := llm.Lookup(s.provider.ID())
	return ProviderInfo{Type: s.provider.ID(), Model: s.provider.Model(), Info: info}
}

// EstimateCost prices a turn for message using fixed allowances for the
// data context and the reply.
func (s *Service) EstimateCost(message string) llm.Cost {
	in := llm.EstimateTokens(message) + contextTokenAllowance
	return s.provider.CalculateCost(in, replyTokenAllowance)
}
