package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/wunjo/internal/aggregator"
	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/index"
	"github.com/starford/wunjo/internal/llm"
	"github.com/starford/wunjo/internal/prompt"
	"github.com/starford/wunjo/internal/storage"
)

// components is everything the serve, mcp and CLI paths share.
type components struct {
	cfg      *Config
	logger   *slog.Logger
	store    *storage.FS
	db       *index.DB
	analyzer *analyzer.Analyzer
	agg      *aggregator.Aggregator
	history  *chat.History
	// session is nil when the assistant is disabled.
	session *chat.Session
}

func (c *components) Close() error {
	return c.db.Close()
}

// build applies opts, installs the default logger and opens the workspace
// and index. The caller must Close the result.
func build(ctx context.Context, opts []Option) (*components, error) {
	app := &application{logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("provider", cfg.Assistant.Provider),
		slog.Bool("assistant_enabled", cfg.Assistant.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure workspace directory exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	c := &components{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		db:       db,
		analyzer: analyzer.New(cfg.Assistant.Analyzer),
		agg:      aggregator.New(db.Source(), aggregator.WithLogger(logger)),
		history:  chat.NewHistory(db, cfg.Assistant.HistoryLimit),
	}

	if cfg.Assistant.Enabled() {
		session, err := newSession(ctx, cfg.Assistant, c, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		c.session = session
	}
	return c, nil
}

func newSession(ctx context.Context, cfg AssistantConfig, c *components, logger *slog.Logger) (*chat.Session, error) {
	llmOpts := []llm.Option{llm.WithLogger(logger)}
	if cfg.BaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.BaseURL))
	}
	provider, err := llm.New(ctx, cfg.ProviderID(), cfg.APIKey, cfg.Model, llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("init provider: %w", err)
	}
	logger.Info("Assistant ready",
		slog.String("provider", string(provider.ID())),
		slog.String("model", provider.Model()))

	svc := chat.NewService(provider, c.agg,
		chat.WithAnalyzer(c.analyzer),
		chat.WithBuilder(prompt.New(prompt.WithMaxTokens(cfg.MaxTokens))),
		chat.WithLogger(logger),
		chat.WithMaxRetries(cfg.MaxRetries),
		chat.WithRequestTimeout(cfg.RequestTimeout),
	)
	return chat.NewSession(svc, c.history, logger), nil
}
