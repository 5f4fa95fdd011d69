package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/wunjo/internal/llm"
)

// DefaultHistoryLimit is the number of turns kept when none is configured.
const DefaultHistoryLimit = 20

// Turn is one stored conversation message.
type Turn struct {
	ID        string    `json:"id"`
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a Turn with a fresh id.
func NewTurn(role llm.Role, content string, at time.Time) Turn {
	return Turn{ID: uuid.NewString(), Role: role, Content: content, Timestamp: at}
}

// HistoryStore persists the conversation.
type HistoryStore interface {
	LoadConversation(ctx context.Context) ([]Turn, error)
	SaveConversation(ctx context.Context, turns []Turn) error
	ClearConversation(ctx context.Context) error
}

// MemoryHistory is an in-process HistoryStore.
type MemoryHistory struct {
	mu    sync.Mutex
	turns []Turn
}

func (m *MemoryHistory) LoadConversation(context.Context) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Turn(nil), m.turns...), nil
}

func (m *MemoryHistory) SaveConversation(_ context.Context, turns []Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append([]Turn(nil), turns...)
	return nil
}

func (m *MemoryHistory) ClearConversation(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
	return nil
}

// History is the bounded conversation backed by a HistoryStore.
type History struct {
	store HistoryStore
	limit int
}

// NewHistory keeps at most limit turns; limit <= 0 uses DefaultHistoryLimit.
func NewHistory(store HistoryStore, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{store: store, limit: limit}
}

// Limit returns the configured bound.
func (h *History) Limit() int { return h.limit }

// Load returns stored turns, oldest first.
func (h *History) Load(ctx context.Context) ([]Turn, error) {
	turns, err := h.store.LoadConversation(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat: load history: %w", err)
	}
	return Trim(turns, h.limit), nil
}

// Append stores turns after the existing ones and drops the oldest beyond
// the limit. It returns the saved history.
func (h *History) Append(ctx context.Context, turns ...Turn) ([]Turn, error) {
	current, err := h.Load(ctx)
	if err != nil {
		return nil, err
	}
	next := Trim(append(current, turns...), h.limit)
	if err := h.store.SaveConversation(ctx, next); err != nil {
		return nil, fmt.Errorf("chat: save history: %w", err)
	}
	return next, nil
}

// Window returns the stored turns as prompt messages.
func (h *History) Window(ctx context.Context) ([]llm.Message, error) {
	turns, err := h.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Messages(turns), nil
}

// Clear removes every stored turn.
func (h *History) Clear(ctx context.Context) error {
	if err := h.store.ClearConversation(ctx); err != nil {
		return fmt.Errorf("chat: clear history: %w", err)
	}
	return nil
}

// Trim keeps the last limit turns. A window cut mid-exchange would open
// with an assistant turn, which some backends reject, so leading assistant
// turns are dropped as well.
func Trim(turns []Turn, limit int) []Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	turns = turns[len(turns)-limit:]
	for len(turns) > 0 && turns[0].Role == llm.RoleAssistant {
		turns = turns[1:]
	}
	return turns
}

// Messages converts turns to prompt messages.
func Messages(turns []Turn) []llm.Message {
	out := make([]llm.Message, len(turns))
	for i, t := range turns {
		out[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return out
}

// ExportFormat selects the Export encoding.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatText ExportFormat = "text"
)

// ParseExportFormat accepts "json" (also the empty default) and "text".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	}
	return "", fmt.Errorf("chat: unknown export format %q", s)
}

// Export renders turns. Text blocks look like "[time] You: content" and are
// separated by a blank line; times are printed in loc.
func Export(turns []Turn, format ExportFormat, loc *time.Location) (string, error) {
	switch format {
	case FormatJSON:
		if turns == nil {
			turns = []Turn{}
		}
		raw, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			return "", fmt.Errorf("chat: export: %w", err)
		}
		return string(raw), nil
	case FormatText:
		if loc == nil {
			loc = time.Local
		}
		blocks := make([]string, len(turns))
		for i, t := range turns {
			who := "AI"
			if t.Role == llm.RoleUser {
				who = "You"
			}
			blocks[i] = fmt.Sprintf("[%s] %s: %s", t.Timestamp.In(loc).Format(time.DateTime), who, t.Content)
		}
		return strings.Join(blocks, "\n\n"), nil
	}
	return "", fmt.Errorf("chat: unknown export format %q", format)
}

// Stats summarizes a conversation.
type Stats struct {
	MessageCount    int        `json:"messageCount"`
	UserMessages    int        `json:"userMessages"`
	AIMessages      int        `json:"aiMessages"`
	FirstMessage    *time.Time `json:"firstMessage"`
	LastMessage     *time.Time `json:"lastMessage"`
	EstimatedTokens int        `json:"estimatedTokens"`
}

// ComputeStats counts turns by role and estimates their token size.
func ComputeStats(turns []Turn) Stats {
	if len(turns) == 0 {
		return Stats{}
	}
	s := Stats{MessageCount: len(turns)}
	contents := make([]string, len(turns))
	for i, t := range turns {
		switch t.Role {
		case llm.RoleUser:
			s.UserMessages++
		case llm.RoleAssistant:
			s.AIMessages++
		}
		contents[i] = t.Content
	}
	first, last := turns[0].Timestamp, turns[len(turns)-1].Timestamp
	s.FirstMessage, s.LastMessage = &first, &last
	s.EstimatedTokens = llm.EstimateTokens(strings.Join(contents, " "))
	return s
}
