package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/llm"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Assistant AssistantConfig   `yaml:"assistant"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Assistant.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig holds the path to the notes and boards directory.
type WorkspaceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AssistantConfig selects and tunes the model provider. With an empty
// APIKey the assistant is disabled; analysis and summaries still work.
type AssistantConfig struct {
	Provider       string          `yaml:"provider"`
	APIKey         string          `yaml:"api_key"`
	Model          string          `yaml:"model"`
	BaseURL        string          `yaml:"base_url"`
	MaxRetries     int             `yaml:"max_retries"`
	MaxTokens      int             `yaml:"max_tokens"`
	HistoryLimit   int             `yaml:"history_limit"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	Analyzer       analyzer.Config `yaml:"analyzer"`
}

// Validate validates the assistant configuration.
func (c *AssistantConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = string(llm.Gemini)
	}
	if id, err := llm.ParseProvider(c.Provider); err == nil {
		c.Provider = string(id)
	}
	providers := make([]any, 0, len(llm.ProviderIDs()))
	for _, id := range llm.ProviderIDs() {
		providers = append(providers, string(id))
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(providers...)),
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.MaxTokens, validation.Min(0), validation.Max(8192)),
		validation.Field(&c.HistoryLimit, validation.Min(0), validation.Max(200)),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("assistant: %w", err)
	}
	if t := c.Analyzer.Threshold; t < 0 || t > 1 {
		return fmt.Errorf("assistant: analyzer threshold %v is outside [0, 1]", t)
	}
	for intent, w := range c.Analyzer.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("assistant: analyzer weight for %s is outside [0, 1]", intent)
		}
	}
	return nil
}

// Enabled reports whether chat endpoints should be served.
func (c *AssistantConfig) Enabled() bool {
	return c.APIKey != ""
}

// ProviderID returns the validated provider.
func (c *AssistantConfig) ProviderID() llm.ProviderID {
	return llm.ProviderID(c.Provider)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Path: "./workspace",
		},
		SQLite: SQLiteConfig{
			Path: "./wunjo.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Assistant: AssistantConfig{
			Provider:       string(llm.Gemini),
			MaxRetries:     llm.DefaultMaxRetries,
			MaxTokens:      llm.DefaultMaxTokens,
			HistoryLimit:   chat.DefaultHistoryLimit,
			RequestTimeout: 60 * time.Second,
		},
	}
}
